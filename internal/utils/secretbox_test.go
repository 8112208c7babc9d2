package utils

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSecretBoxRoundTrip(t *testing.T) {
    box, err := NewSecretBox("app-secret")
    require.NoError(t, err)

    plain := []byte("12345678901234567890")
    sealed, err := box.Seal(plain)
    require.NoError(t, err)
    assert.NotContains(t, string(sealed), string(plain))

    opened, err := box.Open(sealed)
    require.NoError(t, err)
    assert.Equal(t, plain, opened)
}

func TestSecretBoxNoncesDiffer(t *testing.T) {
    box, err := NewSecretBox("app-secret")
    require.NoError(t, err)

    a, err := box.Seal([]byte("secret"))
    require.NoError(t, err)
    b, err := box.Seal([]byte("secret"))
    require.NoError(t, err)
    assert.NotEqual(t, a, b)
}

func TestSecretBoxRejectsTamperAndWrongKey(t *testing.T) {
    box, err := NewSecretBox("app-secret")
    require.NoError(t, err)
    sealed, err := box.Seal([]byte("secret"))
    require.NoError(t, err)

    tampered := append([]byte(nil), sealed...)
    tampered[len(tampered)-1] ^= 0x01
    _, err = box.Open(tampered)
    assert.Error(t, err)

    other, err := NewSecretBox("different-secret")
    require.NoError(t, err)
    _, err = other.Open(sealed)
    assert.Error(t, err)

    _, err = box.Open([]byte("short"))
    assert.Error(t, err)
}
