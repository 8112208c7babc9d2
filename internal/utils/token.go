package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA-256 hashing for opaque tokens
    "encoding/hex"  // hex encoding
    "time"          // expirations
)

// OpaqueToken represents a random credential handed to the client in raw
// form.  Only its SHA-256 hash is persisted, so a stolen database row can
// never be replayed as the credential itself.  Both magic-link tokens and
// session cookie values use this shape.
type OpaqueToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// NewOpaqueToken returns a cryptographically secure random token and its
// expiration time.  The raw value is 48 random bytes hex-encoded (96
// characters).
func NewOpaqueToken(ttl time.Duration) (OpaqueToken, error) {
    raw, err := randomHex(48)
    if err != nil {
        return OpaqueToken{}, err
    }
    return OpaqueToken{
        Raw: raw,
        Exp: time.Now().UTC().Add(ttl),
    }, nil
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.  This
// is the only form in which tokens touch storage.
func HashToken(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
