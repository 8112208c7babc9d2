package model

import "time"

// Token purposes stored in the `auth_tokens.purpose` column.  Magic-link
// tokens and the temp tokens that follow them share one table because they
// have identical lifecycle semantics: issued with a TTL, consumed at most
// once, never reused.
const (
    PurposeMagicLink  = "magic_link"
    PurposeTOTPSetup  = "totp_setup"
    PurposeTOTPVerify = "totp_verify"
)

// AuthToken models an entry in the `auth_tokens` table.  The plain token is
// never stored; only its SHA-256 hash.  ConsumedAt doubles as the
// single-use marker: the consume query flips it atomically so two
// concurrent validations can never both succeed.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – owner of the token.
//  Email      – email the token was issued for (lower-cased).
//  TokenHash  – SHA-256 hex digest of the token value.
//  Purpose    – magic_link, totp_setup or totp_verify.
//  ExpiresAt  – expiration timestamp of the token.
//  ConsumedAt – when the token was spent (null if still live).
//  CreatedAt  – timestamp of creation.
type AuthToken struct {
    ID         uint64     // auth_tokens.id
    UserID     uint64     // auth_tokens.user_id
    Email      string     // auth_tokens.email
    TokenHash  string     // auth_tokens.token_hash
    Purpose    string     // auth_tokens.purpose
    ExpiresAt  time.Time  // auth_tokens.expires_at
    ConsumedAt *time.Time // auth_tokens.consumed_at (nullable)
    CreatedAt  time.Time  // auth_tokens.created_at
}
