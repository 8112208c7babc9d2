package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/mailfold/mailfold/internal/model"
)

// TokenRepo persists and consumes single-use auth tokens (magic links and
// the temp tokens that follow them) in the 'auth_tokens' table.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store inserts a token hash row.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, email, tokenHash, purpose string, exp time.Time) error {
    _, err := r.DB.ExecContext(ctx,
        "INSERT INTO auth_tokens (user_id, email, token_hash, purpose, expires_at) VALUES (?,?,?,?,?)",
        userID, email, tokenHash, purpose, exp)
    return err
}

// Consume atomically spends a live token and returns it.  The UPDATE flips
// consumed_at only when the row is still unconsumed and unexpired, so two
// concurrent validations of the same token can never both succeed; the
// database serializes them and the loser observes zero affected rows.
// Unknown, expired and already-consumed tokens are indistinguishable to
// the caller: all return ErrTokenSpent.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash, purpose string) (model.AuthToken, error) {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE auth_tokens SET consumed_at=NOW() WHERE token_hash=? AND purpose=? AND consumed_at IS NULL AND expires_at > UTC_TIMESTAMP()",
        tokenHash, purpose)
    if err != nil {
        return model.AuthToken{}, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return model.AuthToken{}, err
    }
    if n != 1 {
        return model.AuthToken{}, ErrTokenSpent
    }

    var (
        t          model.AuthToken
        consumedAt sql.NullTime
    )
    err = r.DB.QueryRowContext(ctx,
        "SELECT id,user_id,email,token_hash,purpose,expires_at,consumed_at,created_at FROM auth_tokens WHERE token_hash=? LIMIT 1",
        tokenHash).Scan(&t.ID, &t.UserID, &t.Email, &t.TokenHash, &t.Purpose, &t.ExpiresAt, &consumedAt, &t.CreatedAt)
    if err != nil {
        return model.AuthToken{}, err
    }
    if consumedAt.Valid {
        ct := consumedAt.Time
        t.ConsumedAt = &ct
    }
    return t, nil
}

// DeleteExpired prunes rows whose expiry passed more than a day ago.
// Called opportunistically; correctness never depends on it because
// Consume checks expiry itself.
func (r *TokenRepo) DeleteExpired(ctx context.Context) error {
    _, err := r.DB.ExecContext(ctx,
        "DELETE FROM auth_tokens WHERE expires_at < UTC_TIMESTAMP() - INTERVAL 1 DAY")
    return err
}
