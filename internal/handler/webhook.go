package handler

import (
    "io"
    "log"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/mailfold/mailfold/internal/webhook"
)

// Provider header names (Svix convention).
const (
    headerWebhookID        = "webhook-id"
    headerWebhookTimestamp = "webhook-timestamp"
    headerWebhookSignature = "webhook-signature"
)

// WebhookHandler authenticates inbound billing webhooks before anything
// downstream may trust them.
type WebhookHandler struct {
    Verifier *webhook.Verifier
}

func NewWebhookHandler(v *webhook.Verifier) *WebhookHandler {
    return &WebhookHandler{Verifier: v}
}

// Billing verifies the provider signature over the exact bytes received.
// The body is deliberately not parsed, logged or re-serialized before the
// signature check passes; on reject the request is terminal and the
// payload is dropped.
func (h *WebhookHandler) Billing(c echo.Context) error {
    body, err := io.ReadAll(c.Request().Body)
    if err != nil {
        return respondErr(c, http.StatusBadRequest, "unreadable body")
    }

    ok := h.Verifier.Verify(body,
        c.Request().Header.Get(headerWebhookID),
        c.Request().Header.Get(headerWebhookTimestamp),
        c.Request().Header.Get(headerWebhookSignature),
    )
    if !ok {
        return respondErr(c, http.StatusUnauthorized, "invalid signature")
    }

    log.Printf("webhook: accepted billing event id=%s bytes=%d",
        c.Request().Header.Get(headerWebhookID), len(body))
    return c.NoContent(http.StatusNoContent)
}
