package utils

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewOpaqueToken(t *testing.T) {
    before := time.Now().UTC()
    tok, err := NewOpaqueToken(15 * time.Minute)
    require.NoError(t, err)

    assert.Len(t, tok.Raw, 96, "48 random bytes hex-encoded")
    assert.True(t, tok.Exp.After(before.Add(14*time.Minute)))
    assert.True(t, tok.Exp.Before(before.Add(16*time.Minute)))

    other, err := NewOpaqueToken(15 * time.Minute)
    require.NoError(t, err)
    assert.NotEqual(t, tok.Raw, other.Raw)
}

func TestHashToken(t *testing.T) {
    h1 := HashToken("abc")
    h2 := HashToken("abc")
    h3 := HashToken("abd")

    assert.Equal(t, h1, h2, "hashing is deterministic")
    assert.NotEqual(t, h1, h3)
    assert.Len(t, h1, 64, "sha256 hex digest")
    assert.NotContains(t, h1, "abc", "raw value never appears in the hash")
}
