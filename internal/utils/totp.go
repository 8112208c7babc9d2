package utils

import (
    "crypto/hmac"
    "crypto/rand"
    "crypto/sha1"
    "crypto/subtle"
    "encoding/base32"
    "encoding/binary"
    "errors"
    "fmt"
    "net/url"
    "strings"
    "time"
)

// RFC 6238 parameters.  Digits and period are fixed to the values every
// authenticator app ships with; only the accepted clock-drift skew is
// configurable.
const (
    totpSecretBytes = 20
    totpDigits      = 6
    totpPeriodSec   = 30
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTPEnrollment is the one-time material returned to a first-time user.
// The raw secret is shown exactly once at issuance and never again.
type TOTPEnrollment struct {
    Secret []byte // raw shared secret
    Base32 string // base32 form for manual entry
    URI    string // otpauth:// provisioning URI for QR encoding
}

// NewTOTPEnrollment generates a fresh 160-bit shared secret and the
// provisioning URI an authenticator app can scan.
func NewTOTPEnrollment(issuer, account string) (TOTPEnrollment, error) {
    raw := make([]byte, totpSecretBytes)
    if _, err := rand.Read(raw); err != nil {
        return TOTPEnrollment{}, err
    }
    enc := b32.EncodeToString(raw)
    return TOTPEnrollment{
        Secret: raw,
        Base32: enc,
        URI:    provisionURI(issuer, account, enc),
    }, nil
}

// provisionURI builds the otpauth URI understood by authenticator apps.
func provisionURI(issuer, account, secretBase32 string) string {
    label := url.PathEscape(issuer + ":" + account)
    v := url.Values{}
    v.Set("secret", secretBase32)
    v.Set("issuer", issuer)
    v.Set("period", fmt.Sprint(totpPeriodSec))
    v.Set("digits", fmt.Sprint(totpDigits))
    v.Set("algorithm", "SHA1")
    return "otpauth://totp/" + label + "?" + v.Encode()
}

// ValidTOTPFormat reports whether code, after trimming whitespace, is
// exactly six ASCII digits.  Callers must check this before any HMAC work
// so malformed input is rejected without touching the secret.
func ValidTOTPFormat(code string) bool {
    trimmed := strings.TrimSpace(code)
    if len(trimmed) != totpDigits {
        return false
    }
    for _, r := range trimmed {
        if r < '0' || r > '9' {
            return false
        }
    }
    return true
}

// VerifyTOTP checks a submitted code against the shared secret at the
// current time step and up to skew steps on either side, tolerating client
// clock drift.  Comparison is constant-time.  A badly formatted code
// returns false without computing anything.
func VerifyTOTP(secret []byte, code string, now time.Time, skew int) (bool, error) {
    if !ValidTOTPFormat(code) {
        return false, nil
    }
    if len(secret) == 0 {
        return false, errors.New("empty totp secret")
    }
    if skew < 0 {
        skew = 0
    }
    trimmed := strings.TrimSpace(code)
    baseCounter := now.Unix() / totpPeriodSec
    for step := -skew; step <= skew; step++ {
        counter := baseCounter + int64(step)
        if counter < 0 {
            continue
        }
        generated := hotpCode(secret, counter)
        if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
            return true, nil
        }
    }
    return false, nil
}

// hotpCode computes the RFC 4226 HOTP value for a counter using
// HMAC-SHA1 and dynamic truncation.
func hotpCode(secret []byte, counter int64) string {
    var msg [8]byte
    binary.BigEndian.PutUint64(msg[:], uint64(counter))

    mac := hmac.New(sha1.New, secret)
    _, _ = mac.Write(msg[:])
    sum := mac.Sum(nil)

    offset := sum[len(sum)-1] & 0x0f
    bin := (int(sum[offset])&0x7f)<<24 |
        (int(sum[offset+1])&0xff)<<16 |
        (int(sum[offset+2])&0xff)<<8 |
        (int(sum[offset+3]) & 0xff)

    return fmt.Sprintf("%06d", bin%1000000)
}
