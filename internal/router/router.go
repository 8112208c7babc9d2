package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/mailfold/mailfold/internal/handler"    // import the handlers that implement business logic
    "github.com/mailfold/mailfold/internal/middleware" // import middleware for session authentication and role enforcement
    "github.com/mailfold/mailfold/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Pre-session operations live under /v1/auth; the
// session-protected identity and dashboard endpoints live under /v1 behind
// SessionAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, sessions middleware.SessionStore, users middleware.UserStore) {
    // Pre-session flow: the magic-link token or temp token in the request
    // itself is the credential, so these carry no cookie middleware.
    g := e.Group("/v1/auth")
    g.POST("/request-link", a.RequestMagicLink)
    g.GET("/verify", a.ValidateMagicLink)
    g.POST("/totp/setup", a.CompleteTOTPSetup)
    g.POST("/totp/verify", a.VerifyTOTP)
    // Logout only discards state; it succeeds with or without a live
    // session, so it stays outside the auth group too.
    g.POST("/logout", a.Logout)

    // Session-protected surface.  SessionAuth is the single choke point:
    // every route below resolves the cookie to a fresh identity before the
    // handler runs.
    auth := e.Group("/v1")
    auth.Use(middleware.SessionAuth(a.Cfg.SessionCookieName, sessions, users))
    auth.Use(middleware.RequireRole(model.RoleOwner, model.RoleAdmin, model.RoleSubscriber))
    auth.GET("/auth/me", a.Me)
    auth.POST("/auth/logout-all", a.LogoutAll)
    auth.GET("/dashboard", handler.Dashboard)
}

// RegisterWebhooks registers inbound provider webhook endpoints.  These are
// authenticated by signature, not by session, and therefore bypass the
// cookie middleware entirely.
func RegisterWebhooks(e *echo.Echo, w *handler.WebhookHandler) {
    e.POST("/v1/webhooks/billing", w.Billing)
}
