// Package secure seals sensitive identifiers at rest.
package secure

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var ErrMalformed = errors.New("secure: malformed sealed value")

// Sealer encrypts values with XChaCha20-Poly1305 and derives a keyed
// blind index so sealed values can still be matched for equality.
type Sealer struct {
	aead   cipher.AEAD
	macKey []byte
}

func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("secure: empty secret")
	}
	encKey, err := derive(secret, "mcacrm/seal", chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	macKey, err := derive(secret, "mcacrm/index", sha256.Size)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, fmt.Errorf("secure: init aead: %w", err)
	}
	return &Sealer{aead: aead, macKey: macKey}, nil
}

func derive(secret, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("secure: derive %s: %w", info, err)
	}
	return key, nil
}

func (s *Sealer) Seal(plain string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secure: nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrMalformed
	}
	nonce, box := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, box, nil)
	if err != nil {
		return "", ErrMalformed
	}
	return string(plain), nil
}

// Index is deterministic for a given secret and value.
func (s *Sealer) Index(plain string) string {
	m := hmac.New(sha256.New, s.macKey)
	m.Write([]byte(plain))
	return hex.EncodeToString(m.Sum(nil))
}

// MaskSSN keeps only the serial of a formatted or bare SSN.
func MaskSSN(ssn string) string {
	if len(ssn) < 4 {
		return "XXX-XX-XXXX"
	}
	return "XXX-XX-" + ssn[len(ssn)-4:]
}
