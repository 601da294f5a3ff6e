package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/curve25519"

	"confidant/internal/domain"
)

// X25519 is the default KeyAgreement: Diffie–Hellman over Curve25519.
type X25519 struct{}

// NewX25519 returns the Curve25519 key agreement.
func NewX25519() X25519 { return X25519{} }

// Name returns the suite identifier stored alongside key records.
func (X25519) Name() string { return "x25519" }

// PublicKeySize is the raw public key length.
func (X25519) PublicKeySize() int { return curve25519.PointSize }

// GenerateKeyPair returns a fresh Curve25519 key pair.
// The private key is clamped per RFC 7748.
func (X25519) GenerateKeyPair() (domain.KeyPair, error) {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}
	clamp(priv)
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		Wipe(priv)
		return domain.KeyPair{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}
	return domain.KeyPair{Private: priv, Public: pub}, nil
}

// DeriveSharedSecret computes X25519(priv, pub).
//
// curve25519.X25519 rejects low-order points, which would otherwise yield an
// all-zero secret.
func (X25519) DeriveSharedSecret(priv, pub []byte) (out domain.SharedSecret, err error) {
	if len(priv) != curve25519.ScalarSize {
		return out, fmt.Errorf("x25519 private: want %d bytes, got %d", curve25519.ScalarSize, len(priv))
	}
	if len(pub) != curve25519.PointSize {
		return out, fmt.Errorf("x25519 public: want %d bytes, got %d", curve25519.PointSize, len(pub))
	}
	secret, err := curve25519.X25519(priv, pub)
	if err != nil {
		return out, err
	}
	defer Wipe(secret)
	var zero [domain.SharedSecretSize]byte
	if subtle.ConstantTimeCompare(secret, zero[:]) == 1 {
		return out, fmt.Errorf("x25519: degenerate shared secret")
	}
	copy(out[:], secret)
	return out, nil
}

func clamp(k []byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// Compile-time assertion that X25519 implements domain.KeyAgreement.
var _ domain.KeyAgreement = X25519{}
