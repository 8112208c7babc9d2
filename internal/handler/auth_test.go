package handler

import (
    "context"
    "crypto/hmac"
    "crypto/sha1"
    "encoding/base32"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/mailfold/mailfold/internal/config"
    "github.com/mailfold/mailfold/internal/model"
    "github.com/mailfold/mailfold/internal/queue"
    "github.com/mailfold/mailfold/internal/repository"
    "github.com/mailfold/mailfold/internal/utils"
)

// ----- in-memory fakes -----

type fakeUsers struct {
    byID map[uint64]*model.User
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
    for _, u := range f.byID {
        if u.Email == email && u.IsActive {
            return *u, nil
        }
    }
    return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
    if u, ok := f.byID[id]; ok && u.IsActive {
        return *u, nil
    }
    return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) SetTOTPSecret(_ context.Context, id uint64, sealed []byte) error {
    u, ok := f.byID[id]
    if !ok || u.TOTPEnabled {
        return repository.ErrNotFound
    }
    u.TOTPSecret = sealed
    return nil
}

func (f *fakeUsers) EnableTOTP(_ context.Context, id uint64) error {
    f.byID[id].TOTPEnabled = true
    return nil
}

type fakeTokens struct {
    rows map[string]*model.AuthToken
}

func (f *fakeTokens) Store(_ context.Context, userID uint64, email, hash, purpose string, exp time.Time) error {
    f.rows[hash] = &model.AuthToken{UserID: userID, Email: email, TokenHash: hash, Purpose: purpose, ExpiresAt: exp}
    return nil
}

func (f *fakeTokens) Consume(_ context.Context, hash, purpose string) (model.AuthToken, error) {
    t, ok := f.rows[hash]
    if !ok || t.Purpose != purpose || t.ConsumedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
        return model.AuthToken{}, repository.ErrTokenSpent
    }
    now := time.Now().UTC()
    t.ConsumedAt = &now
    return *t, nil
}

type fakeSessions struct {
    rows map[string]uint64
}

func (f *fakeSessions) Store(_ context.Context, userID uint64, hash string, _ time.Time) error {
    f.rows[hash] = userID
    return nil
}

func (f *fakeSessions) RevokeByHash(_ context.Context, hash string) error {
    delete(f.rows, hash)
    return nil
}

func (f *fakeSessions) RevokeAllForUser(_ context.Context, userID uint64) error {
    for hash, id := range f.rows {
        if id == userID {
            delete(f.rows, hash)
        }
    }
    return nil
}

type fakeLimiter struct{ allow bool }

func (f *fakeLimiter) Allow(context.Context, string, string) bool { return f.allow }

// ----- harness -----

type harness struct {
    h        *AuthHandler
    users    *fakeUsers
    tokens   *fakeTokens
    sessions *fakeSessions
    limiter  *fakeLimiter
    events   []queue.MagicLinkIssuedEvent
}

func newHarness(t *testing.T) *harness {
    t.Helper()
    box, err := utils.NewSecretBox("test-app-secret")
    require.NoError(t, err)

    hn := &harness{
        users: &fakeUsers{byID: map[uint64]*model.User{
            1: {ID: 1, Email: "user@example.com", Role: model.RoleSubscriber, IsActive: true},
            2: {ID: 2, Email: "owner@example.com", Role: model.RoleOwner, IsActive: true},
        }},
        tokens:   &fakeTokens{rows: map[string]*model.AuthToken{}},
        sessions: &fakeSessions{rows: map[string]uint64{}},
        limiter:  &fakeLimiter{allow: true},
    }
    cfg := config.Config{
        Env:               "test",
        AuthSecret:        "test-app-secret",
        MagicLinkTTLMin:   15,
        TempTokenTTLMin:   10,
        SessionTTLHours:   24,
        SessionCookieName: "mf_session",
        MagicLinkBaseURL:  "http://localhost:8080/v1/auth/verify",
        TOTPIssuer:        "Mailfold",
        TOTPSkewSteps:     1,
    }
    hn.h = NewAuthHandler(cfg, hn.users, hn.tokens, hn.sessions, box, hn.limiter,
        func(_ context.Context, ev queue.MagicLinkIssuedEvent) error {
            hn.events = append(hn.events, ev)
            return nil
        })
    return hn
}

func doJSON(e *echo.Echo, fn echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    _ = fn(e.NewContext(req, rec))
    return rec
}

// totpCode computes the RFC 6238 code for a base32 secret, independently
// of the production implementation.
func totpCode(t *testing.T, secretBase32 string, now time.Time) string {
    t.Helper()
    secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secretBase32)
    require.NoError(t, err)

    var msg [8]byte
    binary.BigEndian.PutUint64(msg[:], uint64(now.Unix()/30))
    mac := hmac.New(sha1.New, secret)
    mac.Write(msg[:])
    sum := mac.Sum(nil)
    offset := sum[len(sum)-1] & 0x0f
    bin := (int(sum[offset])&0x7f)<<24 |
        (int(sum[offset+1])&0xff)<<16 |
        (int(sum[offset+2])&0xff)<<8 |
        (int(sum[offset+3]) & 0xff)
    return fmt.Sprintf("%06d", bin%1000000)
}

// requestLinkToken drives RequestMagicLink and extracts the raw token from
// the captured delivery event.
func requestLinkToken(t *testing.T, e *echo.Echo, hn *harness, email string) string {
    t.Helper()
    rec := doJSON(e, hn.h.RequestMagicLink, http.MethodPost, "/v1/auth/request-link",
        `{"email":"`+email+`"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    require.NotEmpty(t, hn.events)

    u, err := url.Parse(hn.events[len(hn.events)-1].LinkURL)
    require.NoError(t, err)
    raw := u.Query().Get("token")
    require.NotEmpty(t, raw)
    return raw
}

// ----- tests -----

func TestRequestMagicLinkRejectsBadEmail(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)

    for _, email := range []string{"", "no-at-sign", "a@b", "two@@example.com", "a b@example.com"} {
        rec := doJSON(e, hn.h.RequestMagicLink, http.MethodPost, "/v1/auth/request-link",
            `{"email":"`+email+`"}`)
        assert.Equal(t, http.StatusBadRequest, rec.Code, "email %q", email)
        assert.Contains(t, rec.Body.String(), "invalid email format")
    }
    assert.Empty(t, hn.events, "no delivery for rejected input")
}

func TestRequestMagicLinkUniformAcknowledgment(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)

    known := doJSON(e, hn.h.RequestMagicLink, http.MethodPost, "/v1/auth/request-link",
        `{"email":"user@example.com"}`)
    unknown := doJSON(e, hn.h.RequestMagicLink, http.MethodPost, "/v1/auth/request-link",
        `{"email":"nobody@example.com"}`)

    assert.Equal(t, http.StatusOK, known.Code)
    assert.Equal(t, http.StatusOK, unknown.Code)
    assert.Equal(t, known.Body.String(), unknown.Body.String(),
        "known and unknown accounts must be indistinguishable")

    assert.Len(t, hn.events, 1, "only the known account got a link")
}

func TestRequestMagicLinkRateLimited(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)
    hn.limiter.allow = false

    rec := doJSON(e, hn.h.RequestMagicLink, http.MethodPost, "/v1/auth/request-link",
        `{"email":"user@example.com"}`)
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Contains(t, rec.Body.String(), "Too many",
        "clients key the slow-down hint off this phrasing")
}

func TestValidateMagicLinkConsumesOnce(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)
    raw := requestLinkToken(t, e, hn, "user@example.com")

    first := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token="+raw, "")
    require.Equal(t, http.StatusOK, first.Code)

    second := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token="+raw, "")
    assert.Equal(t, http.StatusUnauthorized, second.Code)

    // A never-issued token gets the byte-identical response: replay and
    // expiry are not distinguishable from the outside.
    bogus := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token=deadbeef", "")
    assert.Equal(t, second.Code, bogus.Code)
    assert.Equal(t, second.Body.String(), bogus.Body.String())
}

func TestValidateMagicLinkFirstTimeReturnsEnrollment(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)
    raw := requestLinkToken(t, e, hn, "user@example.com")

    rec := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token="+raw, "")
    require.Equal(t, http.StatusOK, rec.Code)

    var env struct {
        Success bool       `json:"success"`
        Data    verifyResp `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
    assert.True(t, env.Success)
    assert.True(t, env.Data.IsFirstTime)
    assert.Equal(t, "user@example.com", env.Data.Email)
    assert.NotEmpty(t, env.Data.TempToken)
    assert.NotEmpty(t, env.Data.TOTPSecret)
    assert.Contains(t, env.Data.TOTPUri, "otpauth://totp/")
}

func TestTOTPSetupRejectsBadCodeFormat(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)

    for _, code := range []string{"", "12345", "12345a", "1234567"} {
        rec := doJSON(e, hn.h.CompleteTOTPSetup, http.MethodPost, "/v1/auth/totp/setup",
            `{"temp_token":"whatever","code":"`+code+`"}`)
        assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q", code)
        assert.Contains(t, rec.Body.String(), "6 digits")
    }
}

func TestFullFirstTimeFlow(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)

    // Request a link, follow it.
    raw := requestLinkToken(t, e, hn, "user@example.com")
    rec := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token="+raw, "")
    require.Equal(t, http.StatusOK, rec.Code)

    var env struct {
        Data verifyResp `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
    require.True(t, env.Data.IsFirstTime)

    // A wrong (well-formed) code fails generically and does not spend the
    // temp token.
    bad := doJSON(e, hn.h.CompleteTOTPSetup, http.MethodPost, "/v1/auth/totp/setup",
        `{"temp_token":"`+env.Data.TempToken+`","code":"000000"}`)
    assert.Equal(t, http.StatusUnauthorized, bad.Code)
    assert.Contains(t, bad.Body.String(), "verification failed")

    // The correct code from the one-time secret succeeds and sets the
    // session cookie.
    code := totpCode(t, env.Data.TOTPSecret, time.Now().UTC())
    good := doJSON(e, hn.h.CompleteTOTPSetup, http.MethodPost, "/v1/auth/totp/setup",
        `{"temp_token":"`+env.Data.TempToken+`","code":"`+code+`"}`)
    require.Equal(t, http.StatusOK, good.Code)
    assert.Contains(t, good.Body.String(), `"user@example.com"`)

    cookies := good.Result().Cookies()
    require.NotEmpty(t, cookies)
    session := cookies[0]
    assert.Equal(t, "mf_session", session.Name)
    assert.True(t, session.HttpOnly)
    assert.NotEmpty(t, session.Value)
    assert.Contains(t, hn.sessions.rows, utils.HashToken(session.Value))

    assert.True(t, hn.users.byID[1].TOTPEnabled, "enrollment completed")

    // The spent temp token cannot buy a second session.
    replay := doJSON(e, hn.h.CompleteTOTPSetup, http.MethodPost, "/v1/auth/totp/setup",
        `{"temp_token":"`+env.Data.TempToken+`","code":"`+code+`"}`)
    assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestReturningUserFlowUsesVerifyPurpose(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)

    // Enroll user 1 first.
    raw := requestLinkToken(t, e, hn, "user@example.com")
    rec := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token="+raw, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var env struct {
        Data verifyResp `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
    code := totpCode(t, env.Data.TOTPSecret, time.Now().UTC())
    good := doJSON(e, hn.h.CompleteTOTPSetup, http.MethodPost, "/v1/auth/totp/setup",
        `{"temp_token":"`+env.Data.TempToken+`","code":"`+code+`"}`)
    require.Equal(t, http.StatusOK, good.Code)

    // Second sign-in: no enrollment material, verify purpose only.
    raw2 := requestLinkToken(t, e, hn, "user@example.com")
    rec2 := doJSON(e, hn.h.ValidateMagicLink, http.MethodGet, "/v1/auth/verify?token="+raw2, "")
    require.Equal(t, http.StatusOK, rec2.Code)
    var env2 struct {
        Data verifyResp `json:"data"`
    }
    require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &env2))
    assert.False(t, env2.Data.IsFirstTime)
    assert.Empty(t, env2.Data.TOTPSecret, "secret is shown exactly once, at enrollment")
    assert.Empty(t, env2.Data.TOTPUri)

    // The verify-purpose temp token is not accepted by the setup endpoint.
    cross := doJSON(e, hn.h.CompleteTOTPSetup, http.MethodPost, "/v1/auth/totp/setup",
        `{"temp_token":"`+env2.Data.TempToken+`","code":"`+totpCode(t, env.Data.TOTPSecret, time.Now().UTC())+`"}`)
    assert.Equal(t, http.StatusUnauthorized, cross.Code)

    // It is accepted by the verify endpoint with a current code.
    ok := doJSON(e, hn.h.VerifyTOTP, http.MethodPost, "/v1/auth/totp/verify",
        `{"temp_token":"`+env2.Data.TempToken+`","code":"`+totpCode(t, env.Data.TOTPSecret, time.Now().UTC())+`"}`)
    assert.Equal(t, http.StatusOK, ok.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)

    // Without any cookie.
    rec := doJSON(e, hn.h.Logout, http.MethodPost, "/v1/auth/logout", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"success":true`)

    // With a live session: revoked server-side, cookie cleared.
    hn.sessions.rows[utils.HashToken("raw-session")] = 1
    req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
    req.AddCookie(&http.Cookie{Name: "mf_session", Value: "raw-session"})
    rec2 := httptest.NewRecorder()
    _ = hn.h.Logout(e.NewContext(req, rec2))
    assert.Equal(t, http.StatusOK, rec2.Code)
    assert.NotContains(t, hn.sessions.rows, utils.HashToken("raw-session"))

    cleared := rec2.Result().Cookies()
    require.NotEmpty(t, cleared)
    assert.Empty(t, cleared[0].Value)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
    e := echo.New()
    hn := newHarness(t)
    hn.sessions.rows[utils.HashToken("laptop")] = 1
    hn.sessions.rows[utils.HashToken("phone")] = 1
    hn.sessions.rows[utils.HashToken("other-user")] = 2

    req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout-all", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.Set("user_id", uint64(1))
    require.NoError(t, hn.h.LogoutAll(c))

    assert.Equal(t, http.StatusOK, rec.Code)
    assert.NotContains(t, hn.sessions.rows, utils.HashToken("laptop"))
    assert.NotContains(t, hn.sessions.rows, utils.HashToken("phone"))
    assert.Contains(t, hn.sessions.rows, utils.HashToken("other-user"),
        "only the caller's sessions are revoked")
}
