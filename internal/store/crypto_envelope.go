package store

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"confidant/internal/crypto"
)

const (
	// The current supported version of the sealed cookie format.
	cookieFormatVersion = 1

	// MinSessionSecretBytes is the shortest accepted session secret.
	MinSessionSecretBytes = 32

	cookieKDFContext = "confidant/session-cookie/v1"
)

var (
	// Returned when the session secret is wrong or the cookie has been modified / corrupted.
	errCookieRejected = errors.New("session cookie rejected")

	// ErrWeakSessionSecret is returned for secrets shorter than MinSessionSecretBytes.
	ErrWeakSessionSecret = fmt.Errorf("session secret must be at least %d bytes", MinSessionSecretBytes)
)

// blob is the JSON structure sealed into a cookie value.
type blob struct {
	V      int    `json:"v"`
	Nonce  []byte `json:"n"`
	Cipher []byte `json:"c"`
}

// CookieCodec seals values into opaque cookie strings under a key derived
// from the server-held session secret.
type CookieCodec struct {
	key []byte
}

// NewCookieCodec derives the sealing key from secret. Derivation is slow by
// design of scrypt, so build one codec per process.
func NewCookieCodec(secret string) (*CookieCodec, error) {
	if len(secret) < MinSessionSecretBytes {
		return nil, ErrWeakSessionSecret
	}
	N, r, p := scryptParamsDefault()
	key, err := scrypt.Key([]byte(secret), []byte(cookieKDFContext), N, r, p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return &CookieCodec{key: key}, nil
}

// Seal encrypts the JSON form of v and returns a URL-safe string.
func (c *CookieCodec) Seal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	defer crypto.Wipe(raw)

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out, err := json.Marshal(blob{
		V:      cookieFormatVersion,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, raw, []byte(cookieKDFContext)),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Unseal reverses Seal into v.
func (c *CookieCodec) Unseal(s string, v any) error {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return errCookieRejected
	}
	var bl blob
	if err := json.Unmarshal(b, &bl); err != nil {
		return errCookieRejected
	}
	if bl.V > cookieFormatVersion {
		return fmt.Errorf("unsupported cookie version %d", bl.V)
	}
	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return err
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return errCookieRejected
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, []byte(cookieKDFContext))
	if err != nil {
		return errCookieRejected
	}
	defer crypto.Wipe(pt)
	return json.Unmarshal(pt, v)
}

// Tunables for scrypt key derivation.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }
