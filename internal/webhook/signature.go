// Package webhook verifies Svix-style signatures on inbound provider
// webhooks.  The verifier is pure: it knows nothing about HTTP frameworks
// and takes the raw body bytes exactly as received, since the signature is
// computed over the wire bytes and any re-serialization would break it.
package webhook

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/base64"
    "strconv"
    "strings"
    "time"
)

const (
    // secretPrefix marks a base64-encoded signing key as handed out by the
    // provider dashboard.  A secret without the prefix is used raw.
    secretPrefix = "whsec_"
    // signatureVersion is the only signing scheme we accept.
    signatureVersion = "v1"
    // DefaultTolerance bounds |now - timestamp| before any cryptographic
    // work happens; anything staler is rejected as a replay.
    DefaultTolerance = 300 * time.Second
)

// Verifier checks provider signatures against one shared secret.
type Verifier struct {
    key       []byte
    tolerance time.Duration
    now       func() time.Time
}

// NewVerifier derives the signing key from the configured secret.  A
// "whsec_"-prefixed secret has its remainder base64-decoded to raw key
// bytes; a malformed remainder leaves the verifier rejecting everything
// rather than erroring, because webhook endpoints must never crash on bad
// config or input.  tolerance <= 0 selects DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
    if tolerance <= 0 {
        tolerance = DefaultTolerance
    }
    v := &Verifier{tolerance: tolerance, now: time.Now}
    if rest, ok := strings.CutPrefix(secret, secretPrefix); ok {
        key, err := base64.StdEncoding.DecodeString(rest)
        if err != nil {
            return v // nil key: every verification fails closed
        }
        v.key = key
        return v
    }
    v.key = []byte(secret)
    return v
}

// Verify reports whether the signature headers authenticate the payload.
// Rules, in order:
//  1. the timestamp must parse and sit within the replay tolerance;
//  2. the signature header may carry several space-separated
//     "version,signature" pairs (key rotation) — only v1 pairs count;
//  3. the expected value is base64(HMAC-SHA256("{timestamp}.{payload}"))
//     and any one matching candidate accepts.
// Every failure mode, including malformed input, returns false.
func (v *Verifier) Verify(payload []byte, msgID, timestamp, sigHeader string) bool {
    if len(v.key) == 0 || msgID == "" {
        return false
    }
    ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
    if err != nil {
        return false
    }
    diff := v.now().UTC().Sub(time.Unix(ts, 0))
    if diff < 0 {
        diff = -diff
    }
    if diff > v.tolerance {
        return false
    }

    candidates := candidateSignatures(sigHeader)
    if len(candidates) == 0 {
        return false
    }

    mac := hmac.New(sha256.New, v.key)
    mac.Write([]byte(strings.TrimSpace(timestamp)))
    mac.Write([]byte("."))
    mac.Write(payload)
    expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

    for _, cand := range candidates {
        if hmac.Equal([]byte(expected), []byte(cand)) {
            return true
        }
    }
    return false
}

// candidateSignatures extracts the signature parts of all v1 pairs from a
// header like "v1,AAAA v2,BBBB v1,CCCC".
func candidateSignatures(header string) []string {
    var out []string
    for _, pair := range strings.Fields(header) {
        version, sig, ok := strings.Cut(pair, ",")
        if !ok || version != signatureVersion || sig == "" {
            continue
        }
        out = append(out, sig)
    }
    return out
}
