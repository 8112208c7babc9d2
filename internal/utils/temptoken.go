package utils

import (
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"       // jti generation
)

// TempToken represents the short-lived credential issued after a magic
// link validates.  It scopes the holder to completing TOTP setup or
// verification only; it is never accepted by the session middleware.  The
// signed claims carry everything the exchange endpoints need, and the
// token's hash is additionally stored server-side so it can be spent at
// most once.
type TempToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // UTC expiration time
}

// TempClaims are the claims embedded in a temp token.
type TempClaims struct {
    Email     string `json:"email"`
    FirstTime bool   `json:"first_time"`
    Purpose   string `json:"purpose"`
    jwt.RegisteredClaims
}

var errTempTokenInvalid = errors.New("temp token invalid")

// UserID parses the subject claim back into the numeric user ID.
func (c TempClaims) UserID() (uint64, error) {
    return strconv.ParseUint(c.Subject, 10, 64)
}

// NewTempToken builds and signs an HS256 JWT scoping userID/email to one
// TOTP exchange.  Purpose must be the totp_setup or totp_verify token
// purpose; the exchange endpoint checks it so a setup token can never be
// replayed against the verify endpoint or vice versa.
func NewTempToken(secret string, userID uint64, email, purpose string, firstTime bool, ttlMin int) (TempToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
    claims := TempClaims{
        Email:     email,
        FirstTime: firstTime,
        Purpose:   purpose,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(userID, 10),
            ExpiresAt: jwt.NewNumericDate(exp),
            IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
            ID:        uuid.NewString(),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return TempToken{}, err
    }
    return TempToken{Token: signed, Exp: exp}, nil
}

// ParseTempToken verifies signature and expiry and returns the claims.
// Any parse failure, algorithm mismatch or expired token collapses into a
// single generic error; callers never learn which check failed.
func ParseTempToken(secret, raw string) (TempClaims, error) {
    var claims TempClaims
    tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errTempTokenInvalid
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return TempClaims{}, errTempTokenInvalid
    }
    return claims, nil
}
