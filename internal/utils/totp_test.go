package utils

import (
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// rfcSecret is the shared secret from the RFC 4226 / RFC 6238 test vectors.
var rfcSecret = []byte("12345678901234567890")

func TestVerifyTOTPAgainstRFCVector(t *testing.T) {
    // RFC 6238, SHA-1, T=59s: the 8-digit vector is 94287082, whose
    // 6-digit truncation is 287082.
    ok, err := VerifyTOTP(rfcSecret, "287082", time.Unix(59, 0), 0)
    require.NoError(t, err)
    assert.True(t, ok)

    ok, err = VerifyTOTP(rfcSecret, "287081", time.Unix(59, 0), 0)
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestVerifyTOTPSkewWindow(t *testing.T) {
    // 287082 belongs to counter 1 (t in [30,60)).  At t=95 the current
    // counter is 3; counter 1 is two steps back.
    at := time.Unix(95, 0)

    ok, err := VerifyTOTP(rfcSecret, "287082", at, 0)
    require.NoError(t, err)
    assert.False(t, ok, "no skew must not reach back two steps")

    ok, err = VerifyTOTP(rfcSecret, "287082", at, 2)
    require.NoError(t, err)
    assert.True(t, ok, "skew of 2 covers the drifted step")
}

func TestVerifyTOTPFormatRejectedBeforeCrypto(t *testing.T) {
    bad := []string{"", "12345", "1234567", "12345a", "abcdef", "12 456", "12345½"}
    for _, code := range bad {
        ok, err := VerifyTOTP(nil, code, time.Now(), 1)
        assert.NoError(t, err, "code %q", code)
        assert.False(t, ok, "code %q", code)
    }
    // The nil secret above proves the format gate fires first: a
    // well-formed code against an empty secret errors instead.
    _, err := VerifyTOTP(nil, "123456", time.Now(), 1)
    assert.Error(t, err)
}

func TestVerifyTOTPTrimsWhitespace(t *testing.T) {
    ok, err := VerifyTOTP(rfcSecret, "  287082\n", time.Unix(59, 0), 0)
    require.NoError(t, err)
    assert.True(t, ok)
}

func TestValidTOTPFormat(t *testing.T) {
    assert.True(t, ValidTOTPFormat("123456"))
    assert.True(t, ValidTOTPFormat(" 123456 "))
    assert.False(t, ValidTOTPFormat("12345"))
    assert.False(t, ValidTOTPFormat("123 456"))
    assert.False(t, ValidTOTPFormat("12345x"))
}

func TestNewTOTPEnrollment(t *testing.T) {
    e, err := NewTOTPEnrollment("Mailfold", "user@example.com")
    require.NoError(t, err)

    assert.Len(t, e.Secret, 20)
    assert.NotEmpty(t, e.Base32)
    assert.NotContains(t, e.Base32, "=", "base32 secret uses no padding")
    assert.True(t, strings.HasPrefix(e.URI, "otpauth://totp/"))
    assert.Contains(t, e.URI, "secret="+e.Base32)
    assert.Contains(t, e.URI, "issuer=Mailfold")
    assert.Contains(t, e.URI, "digits=6")
    assert.Contains(t, e.URI, "period=30")

    // The code derived from freshly enrolled material must verify at the
    // same instant it was generated.
    now := time.Now().UTC()
    code := hotpCode(e.Secret, now.Unix()/totpPeriodSec)
    ok, err := VerifyTOTP(e.Secret, code, now, 0)
    require.NoError(t, err)
    assert.True(t, ok)
}

func TestEnrollmentsAreUnique(t *testing.T) {
    a, err := NewTOTPEnrollment("Mailfold", "a@example.com")
    require.NoError(t, err)
    b, err := NewTOTPEnrollment("Mailfold", "a@example.com")
    require.NoError(t, err)
    assert.NotEqual(t, a.Base32, b.Base32)
}
