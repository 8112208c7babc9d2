package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mailfold/mailfold/internal/model"
    "github.com/mailfold/mailfold/internal/utils"
)

// SessionStore validates a hashed session credential and returns the
// owning user ID.
type SessionStore interface {
    Validate(ctx context.Context, tokenHash string) (uint64, error)
}

// UserStore resolves a user ID to its identity record.
type UserStore interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// SessionAuth returns an Echo middleware that resolves the session cookie
// to an identity and injects `user_id`, `email` and `role` into the
// request context.  This is the single choke point every protected route
// passes through.
//
// A missing cookie, a malformed or unknown value, an expired or revoked
// session and a session whose user no longer exists all produce the same
// 401 response; nothing in the reply distinguishes which check failed.
func SessionAuth(cookieName string, sessions SessionStore, users UserStore) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            cookie, err := c.Cookie(cookieName)
            if err != nil || cookie.Value == "" {
                return unauthenticated(c)
            }

            ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
            defer cancel()

            userID, err := sessions.Validate(ctx, utils.HashToken(cookie.Value))
            if err != nil {
                return unauthenticated(c)
            }
            u, err := users.GetByID(ctx, userID)
            if err != nil {
                return unauthenticated(c)
            }

            c.Set("user_id", u.ID)
            c.Set("email", u.Email)
            c.Set("role", u.Role)
            return next(c)
        }
    }
}

func unauthenticated(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "unauthenticated"})
}
