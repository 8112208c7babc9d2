package utils

import (
    "crypto/rand"
    "crypto/sha256"
    "errors"
    "io"

    "golang.org/x/crypto/chacha20poly1305"
    "golang.org/x/crypto/hkdf"
)

// SecretBox seals small secrets (TOTP shared secrets) before they touch
// the database, so a dumped users table does not yield working
// authenticator seeds.  The AEAD key is derived from the application
// secret with HKDF-SHA256 under a fixed purpose label.
type SecretBox struct {
    aeadKey []byte
}

var errSealedTooShort = errors.New("sealed value too short")

// NewSecretBox derives the sealing key from the application secret.
func NewSecretBox(appSecret string) (*SecretBox, error) {
    r := hkdf.New(sha256.New, []byte(appSecret), nil, []byte("mailfold/totp-secret-v1"))
    key := make([]byte, chacha20poly1305.KeySize)
    if _, err := io.ReadFull(r, key); err != nil {
        return nil, err
    }
    return &SecretBox{aeadKey: key}, nil
}

// Seal encrypts plaintext with XChaCha20-Poly1305 under a fresh random
// nonce.  The nonce is prepended to the returned ciphertext.
func (s *SecretBox) Seal(plaintext []byte) ([]byte, error) {
    aead, err := chacha20poly1305.NewX(s.aeadKey)
    if err != nil {
        return nil, err
    }
    nonce := make([]byte, aead.NonceSize())
    if _, err := rand.Read(nonce); err != nil {
        return nil, err
    }
    return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a value produced by Seal.
func (s *SecretBox) Open(sealed []byte) ([]byte, error) {
    aead, err := chacha20poly1305.NewX(s.aeadKey)
    if err != nil {
        return nil, err
    }
    if len(sealed) < aead.NonceSize() {
        return nil, errSealedTooShort
    }
    nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
    return aead.Open(nil, nonce, ct, nil)
}
