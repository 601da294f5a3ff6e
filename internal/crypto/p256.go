package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"confidant/internal/domain"
)

// P256 is a KeyAgreement over NIST P-256. Public keys use the uncompressed
// SEC 1 encoding; the shared X coordinate is exactly 32 bytes.
type P256 struct{}

// NewP256 returns the P-256 key agreement.
func NewP256() P256 { return P256{} }

// Name returns the suite identifier stored alongside key records.
func (P256) Name() string { return "p256" }

// PublicKeySize is the uncompressed point length.
func (P256) PublicKeySize() int { return 65 }

// GenerateKeyPair returns a fresh P-256 key pair.
func (P256) GenerateKeyPair() (domain.KeyPair, error) {
	k, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}
	return domain.KeyPair{Private: k.Bytes(), Public: k.PublicKey().Bytes()}, nil
}

// DeriveSharedSecret computes ECDH(priv, pub) on P-256.
func (P256) DeriveSharedSecret(priv, pub []byte) (out domain.SharedSecret, err error) {
	sk, err := ecdh.P256().NewPrivateKey(priv)
	if err != nil {
		return out, fmt.Errorf("p256 private: %w", err)
	}
	pk, err := ecdh.P256().NewPublicKey(pub)
	if err != nil {
		return out, fmt.Errorf("p256 public: %w", err)
	}
	secret, err := sk.ECDH(pk)
	if err != nil {
		return out, err
	}
	defer Wipe(secret)
	copy(out[:], secret)
	return out, nil
}

// Compile-time assertion that P256 implements domain.KeyAgreement.
var _ domain.KeyAgreement = P256{}
