package model

import "time"

// Role names as stored in the `users.role` column.  Roles are assigned when
// the account is created (out-of-band import or admin provisioning) and no
// endpoint in this service can change them.
const (
    RoleOwner      = "OWNER"
    RoleAdmin      = "ADMIN"
    RoleSubscriber = "SUBSCRIBER"
)

// User represents an authenticated principal as stored in the `users`
// table.  Each field corresponds to a column.  The TOTP secret is kept
// sealed (AEAD-encrypted) at rest; repositories hand the ciphertext to the
// utils layer for opening.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique email address, stored lower-cased.
//  Role           – OWNER, ADMIN or SUBSCRIBER.
//  TOTPSecret     – sealed TOTP secret bytes (nil before first enrollment).
//  TOTPEnabled    – whether TOTP enrollment has completed.
//  TOTPEnrolledAt – when enrollment completed (null until then).
//  IsActive       – whether the account is active.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
    ID             uint64     // users.id
    Email          string     // users.email
    Role           string     // users.role
    TOTPSecret     []byte     // users.totp_secret (sealed, nullable)
    TOTPEnabled    bool       // users.totp_enabled
    TOTPEnrolledAt *time.Time // users.totp_enrolled_at (nullable)
    IsActive       bool       // users.is_active
    CreatedAt      time.Time  // users.created_at
    UpdatedAt      time.Time  // users.updated_at
}
