package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/mailfold/mailfold/internal/model"
)

// UserRepo reads and updates rows in the 'users' table.  Accounts are
// provisioned out-of-band (subscriber import, admin tooling); this service
// never creates identities and never changes a role.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,role,totp_secret,totp_enabled,totp_enrolled_at,is_active,created_at,updated_at"

// GetByEmail fetches an active user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    return r.scanOne(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? AND is_active=1 LIMIT 1", email))
}

// GetByID fetches an active user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    return r.scanOne(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? AND is_active=1 LIMIT 1", id))
}

// SetTOTPSecret stores a freshly sealed TOTP secret for a user that has
// not yet completed enrollment.  Re-running setup before completion
// overwrites the previous, never-used secret.
func (r *UserRepo) SetTOTPSecret(ctx context.Context, userID uint64, sealed []byte) error {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET totp_secret=?, totp_enabled=0, totp_enrolled_at=NULL WHERE id=? AND totp_enabled=0",
        sealed, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}

// EnableTOTP marks enrollment complete.  The secret is never returned to
// any caller after this point.
func (r *UserRepo) EnableTOTP(ctx context.Context, userID uint64) error {
    _, err := r.DB.ExecContext(ctx,
        "UPDATE users SET totp_enabled=1, totp_enrolled_at=NOW() WHERE id=?", userID)
    return err
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
    var (
        u          model.User
        secret     []byte
        enrolledAt sql.NullTime
    )
    err := row.Scan(&u.ID, &u.Email, &u.Role, &secret, &u.TOTPEnabled, &enrolledAt, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if err == sql.ErrNoRows {
        return model.User{}, ErrNotFound
    }
    if err != nil {
        return model.User{}, err
    }
    u.TOTPSecret = secret
    if enrolledAt.Valid {
        t := enrolledAt.Time
        u.TOTPEnrolledAt = &t
    }
    return u, nil
}
