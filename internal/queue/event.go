// Package queue defines message payloads exchanged over the message broker.
package queue

// MagicLinkQueueName is the durable queue carrying link-delivery requests.
const MagicLinkQueueName = "email.magic_link"

// MagicLinkIssuedEvent is published when a magic-link token has been
// created for an account.  The delivery worker turns it into an outbound
// email; the HTTP request that triggered it never waits on delivery, which
// keeps the request-link response uniform whether or not anything was sent.
type MagicLinkIssuedEvent struct {
    EventID  string `json:"event_id"`
    Email    string `json:"email"`
    LinkURL  string `json:"link_url"`
    Expires  string `json:"expires_at"`
    IssuedAt string `json:"issued_at"`
}
