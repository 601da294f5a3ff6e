package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"confidant/internal/domain"
)

const (
	// NonceBytes is the AEAD nonce length shared by both ciphers.
	NonceBytes = 12
	// TagBytes is the authentication tag length.
	TagBytes = 16
	// SaltBytes is the length of the envelope salt.
	SaltBytes = 32
)

// AESGCM is the default AEAD: AES-256-GCM with a 128-bit tag.
type AESGCM struct{}

// NewAESGCM returns the AES-256-GCM codec.
func NewAESGCM() AESGCM { return AESGCM{} }

func (AESGCM) Name() string   { return "aes-256-gcm" }
func (AESGCM) NonceSize() int { return NonceBytes }
func (AESGCM) Overhead() int  { return TagBytes }

// Seal encrypts plaintext and appends the tag.
func (a AESGCM) Seal(secret domain.SharedSecret, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: cipher setup", domain.ErrEncryption)
	}
	return seal(aead, nonce, plaintext)
}

// Open verifies the tag and decrypts.
func (a AESGCM) Open(secret domain.SharedSecret, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(secret)
	if err != nil {
		return nil, domain.ErrIntegrity
	}
	return open(aead, nonce, ciphertext)
}

func newGCM(secret domain.SharedSecret) (cipher.AEAD, error) {
	block, err := aes.NewCipher(secret[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ChaCha20Poly1305 is the alternate AEAD (RFC 8439).
type ChaCha20Poly1305 struct{}

// NewChaCha20Poly1305 returns the ChaCha20-Poly1305 codec.
func NewChaCha20Poly1305() ChaCha20Poly1305 { return ChaCha20Poly1305{} }

func (ChaCha20Poly1305) Name() string   { return "chacha20-poly1305" }
func (ChaCha20Poly1305) NonceSize() int { return chacha20poly1305.NonceSize }
func (ChaCha20Poly1305) Overhead() int  { return chacha20poly1305.Overhead }

// Seal encrypts plaintext and appends the tag.
func (c ChaCha20Poly1305) Seal(secret domain.SharedSecret, nonce, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return nil, fmt.Errorf("%w: cipher setup", domain.ErrEncryption)
	}
	return seal(aead, nonce, plaintext)
}

// Open verifies the tag and decrypts.
func (c ChaCha20Poly1305) Open(secret domain.SharedSecret, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(secret[:])
	if err != nil {
		return nil, domain.ErrIntegrity
	}
	return open(aead, nonce, ciphertext)
}

// seal rejects a wrong nonce size up front; cipher.AEAD panics on it.
func seal(aead cipher.AEAD, nonce, plaintext []byte) ([]byte, error) {
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", domain.ErrEncryption, aead.NonceSize())
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func open(aead cipher.AEAD, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != aead.NonceSize() || len(ciphertext) < aead.Overhead() {
		return nil, domain.ErrIntegrity
	}
	pt, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrIntegrity
	}
	return pt, nil
}

// Compile-time assertions for the AEAD codecs.
var (
	_ domain.AEAD = AESGCM{}
	_ domain.AEAD = ChaCha20Poly1305{}
)
