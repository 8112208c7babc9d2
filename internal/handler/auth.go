package handler

import (
    "context"  // provides context with cancellation for DB calls
    "errors"   // sentinel comparisons against repository errors
    "log"      // delivery/publish failures are logged, never surfaced
    "net/http" // HTTP status codes and cookie primitives
    "regexp"   // email shape validation
    "strings"  // string manipulation utilities
    "time"     // timeouts and expirations

    "github.com/google/uuid"      // event IDs for queue messages
    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/mailfold/mailfold/internal/config"
    "github.com/mailfold/mailfold/internal/model"
    "github.com/mailfold/mailfold/internal/queue"
    "github.com/mailfold/mailfold/internal/repository"
    "github.com/mailfold/mailfold/internal/utils"
)

// Store interfaces accepted by the auth handler.  The repository types
// satisfy them; tests substitute in-memory fakes.

// UserStore resolves and updates identity records.
type UserStore interface {
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
    SetTOTPSecret(ctx context.Context, userID uint64, sealed []byte) error
    EnableTOTP(ctx context.Context, userID uint64) error
}

// TokenStore persists and consumes single-use auth tokens.
type TokenStore interface {
    Store(ctx context.Context, userID uint64, email, tokenHash, purpose string, exp time.Time) error
    Consume(ctx context.Context, tokenHash, purpose string) (model.AuthToken, error)
}

// SessionStore persists and revokes browser sessions.
type SessionStore interface {
    Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// RequestLimiter bounds magic-link requests per email+IP.
type RequestLimiter interface {
    Allow(ctx context.Context, email, ip string) bool
}

// AuthHandler bundles dependencies for the passwordless auth endpoints.
type AuthHandler struct {
    Cfg      config.Config
    Users    UserStore
    Tokens   TokenStore
    Sessions SessionStore
    Box      *utils.SecretBox
    Limiter  RequestLimiter
    // Publish sends the delivery event for a freshly issued link.  Failures
    // are logged and swallowed so the response stays uniform.
    Publish func(ctx context.Context, ev queue.MagicLinkIssuedEvent) error
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore, s SessionStore, box *utils.SecretBox, lim RequestLimiter, publish func(context.Context, queue.MagicLinkIssuedEvent) error) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Sessions: s, Box: box, Limiter: lim, Publish: publish}
}

// ----- DTOs -----

type requestLinkReq struct {
    Email string `json:"email"`
}
type totpReq struct {
    TempToken string `json:"temp_token"`
    Code      string `json:"code"`
}

type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Role  string `json:"role"`
}

type verifyResp struct {
    TempToken   string `json:"temp_token"`
    IsFirstTime bool   `json:"is_first_time"`
    Email       string `json:"email"`
    TOTPSecret  string `json:"totp_secret,omitempty"`
    TOTPUri     string `json:"totp_uri,omitempty"`
}

// Messages reused across branches.  Failure messages are deliberately
// generic: the same string covers every internal cause so responses leak
// nothing about token or account state.
const (
    msgLinkRequested = "if that address has an account, a sign-in link is on its way"
    msgLinkDead      = "link is invalid or has expired"
    msgTooMany       = "Too many requests for this address, slow down and try again later"
    msgVerifyFailed  = "verification failed"
    msgCodeFormat    = "code must be exactly 6 digits"
    msgInternal      = "internal error"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// RequestMagicLink issues a single-use sign-in link for an email address.
// The acknowledgment is identical whether or not the address has an
// account, so the endpoint cannot be used to enumerate subscribers.
func (h *AuthHandler) RequestMagicLink(c echo.Context) error {
    var req requestLinkReq
    if err := c.Bind(&req); err != nil {
        return respondErr(c, http.StatusBadRequest, "invalid body")
    }
    email := strings.ToLower(strings.TrimSpace(req.Email))
    if !emailRe.MatchString(email) {
        return respondErr(c, http.StatusBadRequest, "invalid email format")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if h.Limiter != nil && !h.Limiter.Allow(ctx, email, c.RealIP()) {
        return respondErr(c, http.StatusTooManyRequests, msgTooMany)
    }

    u, err := h.Users.GetByEmail(ctx, email)
    if err != nil {
        // Unknown account or lookup trouble: same acknowledgment either
        // way.  Infra errors are logged for the operator.
        if !errors.Is(err, repository.ErrNotFound) {
            log.Printf("auth: magic-link user lookup failed: %v", err)
        }
        return respondOK(c, http.StatusOK, echo.Map{"message": msgLinkRequested})
    }

    tok, err := utils.NewOpaqueToken(time.Duration(h.Cfg.MagicLinkTTLMin) * time.Minute)
    if err != nil {
        log.Printf("auth: magic-link token generation failed: %v", err)
        return respondOK(c, http.StatusOK, echo.Map{"message": msgLinkRequested})
    }
    if err := h.Tokens.Store(ctx, u.ID, u.Email, utils.HashToken(tok.Raw), model.PurposeMagicLink, tok.Exp); err != nil {
        log.Printf("auth: magic-link token store failed: %v", err)
        return respondOK(c, http.StatusOK, echo.Map{"message": msgLinkRequested})
    }

    ev := queue.MagicLinkIssuedEvent{
        EventID:  uuid.NewString(),
        Email:    u.Email,
        LinkURL:  h.Cfg.MagicLinkBaseURL + "?token=" + tok.Raw,
        Expires:  tok.Exp.Format(time.RFC3339),
        IssuedAt: time.Now().UTC().Format(time.RFC3339),
    }
    if h.Publish != nil {
        if err := h.Publish(ctx, ev); err != nil {
            log.Printf("auth: magic-link publish failed: %v", err)
        }
    }
    return respondOK(c, http.StatusOK, echo.Map{"message": msgLinkRequested})
}

// ValidateMagicLink spends a magic-link token.  Validation succeeds at
// most once per token; a second attempt is answered exactly like a
// naturally expired link.  Success hands back a temp token scoped to the
// TOTP step, plus one-time enrollment material for first-time users.
func (h *AuthHandler) ValidateMagicLink(c echo.Context) error {
    raw := strings.TrimSpace(c.QueryParam("token"))
    if raw == "" {
        return respondErr(c, http.StatusBadRequest, "token required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    t, err := h.Tokens.Consume(ctx, utils.HashToken(raw), model.PurposeMagicLink)
    if err != nil {
        if errors.Is(err, repository.ErrTokenSpent) {
            return respondErr(c, http.StatusUnauthorized, msgLinkDead)
        }
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }

    u, err := h.Users.GetByID(ctx, t.UserID)
    if err != nil {
        // Account deleted between issuance and validation: answer like a
        // dead link rather than admitting the account ever existed.
        return respondErr(c, http.StatusUnauthorized, msgLinkDead)
    }

    firstTime := !u.TOTPEnabled
    purpose := model.PurposeTOTPVerify
    resp := verifyResp{IsFirstTime: firstTime, Email: u.Email}

    if firstTime {
        purpose = model.PurposeTOTPSetup
        enroll, err := utils.NewTOTPEnrollment(h.Cfg.TOTPIssuer, u.Email)
        if err != nil {
            return respondErr(c, http.StatusInternalServerError, msgInternal)
        }
        sealed, err := h.Box.Seal(enroll.Secret)
        if err != nil {
            return respondErr(c, http.StatusInternalServerError, msgInternal)
        }
        if err := h.Users.SetTOTPSecret(ctx, u.ID, sealed); err != nil {
            return respondErr(c, http.StatusInternalServerError, msgInternal)
        }
        // Shown exactly once.  After setup completes this material is
        // never returned by any endpoint.
        resp.TOTPSecret = enroll.Base32
        resp.TOTPUri = enroll.URI
    }

    temp, err := utils.NewTempToken(h.Cfg.AuthSecret, u.ID, u.Email, purpose, firstTime, h.Cfg.TempTokenTTLMin)
    if err != nil {
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }
    if err := h.Tokens.Store(ctx, u.ID, u.Email, utils.HashToken(temp.Token), purpose, temp.Exp); err != nil {
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }
    resp.TempToken = temp.Token

    return respondOK(c, http.StatusOK, resp)
}

// CompleteTOTPSetup finishes first-time enrollment: it checks the
// submitted code against the freshly enrolled secret, marks TOTP enabled
// and issues the session cookie.  The temp token is spent only when the
// exchange succeeds, so a mistyped code does not force the user back to a
// new magic link.
func (h *AuthHandler) CompleteTOTPSetup(c echo.Context) error {
    return h.exchangeTOTP(c, model.PurposeTOTPSetup)
}

// VerifyTOTP is the returning-user analog of CompleteTOTPSetup: same code
// checks against the already-enrolled secret, no enrollment mutation.
func (h *AuthHandler) VerifyTOTP(c echo.Context) error {
    return h.exchangeTOTP(c, model.PurposeTOTPVerify)
}

func (h *AuthHandler) exchangeTOTP(c echo.Context, purpose string) error {
    var req totpReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.TempToken) == "" {
        return respondErr(c, http.StatusBadRequest, "temp_token required")
    }
    // Format gate runs before any parsing or HMAC work.  The client
    // duplicates this check for UX; it is re-run here because client-side
    // checks are not a trust boundary.
    if !utils.ValidTOTPFormat(req.Code) {
        return respondErr(c, http.StatusBadRequest, msgCodeFormat)
    }

    claims, err := utils.ParseTempToken(h.Cfg.AuthSecret, strings.TrimSpace(req.TempToken))
    if err != nil || claims.Purpose != purpose {
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }
    uid, err := claims.UserID()
    if err != nil {
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }
    if purpose == model.PurposeTOTPVerify && !u.TOTPEnabled {
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }
    if len(u.TOTPSecret) == 0 {
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }

    secret, err := h.Box.Open(u.TOTPSecret)
    if err != nil {
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }
    match, err := utils.VerifyTOTP(secret, req.Code, time.Now().UTC(), h.Cfg.TOTPSkewSteps)
    if err != nil {
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }
    if !match {
        // No partial-match feedback of any kind.
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }

    // Spend the temp token now that the code matched.  If another request
    // already spent it, the whole exchange fails with the same generic
    // message.
    if _, err := h.Tokens.Consume(ctx, utils.HashToken(strings.TrimSpace(req.TempToken)), purpose); err != nil {
        return respondErr(c, http.StatusUnauthorized, msgVerifyFailed)
    }

    if purpose == model.PurposeTOTPSetup {
        if err := h.Users.EnableTOTP(ctx, u.ID); err != nil {
            return respondErr(c, http.StatusInternalServerError, msgInternal)
        }
    }

    if err := h.issueSession(c, ctx, u.ID); err != nil {
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }
    return respondOK(c, http.StatusOK, echo.Map{"user": userPart{ID: u.ID, Email: u.Email, Role: u.Role}})
}

// issueSession creates a session row and sets the HTTP-only cookie.
func (h *AuthHandler) issueSession(c echo.Context, ctx context.Context, userID uint64) error {
    tok, err := utils.NewOpaqueToken(time.Duration(h.Cfg.SessionTTLHours) * time.Hour)
    if err != nil {
        return err
    }
    if err := h.Sessions.Store(ctx, userID, utils.HashToken(tok.Raw), tok.Exp); err != nil {
        return err
    }
    c.SetCookie(&http.Cookie{
        Name:     h.Cfg.SessionCookieName,
        Value:    tok.Raw,
        Path:     "/",
        Expires:  tok.Exp,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
        Secure:   h.Cfg.Env == "prod",
    })
    return nil
}

// Logout revokes the current session and clears the cookie.  It succeeds
// from the client's perspective even when no valid session was presented.
func (h *AuthHandler) Logout(c echo.Context) error {
    if cookie, err := c.Cookie(h.Cfg.SessionCookieName); err == nil && cookie.Value != "" {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        defer cancel()
        if err := h.Sessions.RevokeByHash(ctx, utils.HashToken(cookie.Value)); err != nil {
            log.Printf("auth: logout revoke failed: %v", err)
        }
    }
    c.SetCookie(&http.Cookie{
        Name:     h.Cfg.SessionCookieName,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
        Secure:   h.Cfg.Env == "prod",
    })
    return respondOK(c, http.StatusOK, nil)
}

// LogoutAll revokes every active session of the authenticated user.
// Unlike Logout it runs behind the session middleware, since revoking all
// devices requires proving control of one.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
    id, ok := c.Get("user_id").(uint64)
    if !ok || id == 0 {
        return respondErr(c, http.StatusUnauthorized, "unauthenticated")
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()
    if err := h.Sessions.RevokeAllForUser(ctx, id); err != nil {
        return respondErr(c, http.StatusInternalServerError, msgInternal)
    }
    c.SetCookie(&http.Cookie{
        Name:     h.Cfg.SessionCookieName,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        HttpOnly: true,
        SameSite: http.SameSiteLaxMode,
        Secure:   h.Cfg.Env == "prod",
    })
    return respondOK(c, http.StatusOK, nil)
}

// Me returns the identity resolved by the session middleware.
func (h *AuthHandler) Me(c echo.Context) error {
    id, _ := c.Get("user_id").(uint64)
    email, _ := c.Get("email").(string)
    role, _ := c.Get("role").(string)
    return respondOK(c, http.StatusOK, echo.Map{"user": userPart{ID: id, Email: email, Role: role}})
}
