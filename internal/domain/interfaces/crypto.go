package interfaces

import domaintypes "confidant/internal/domain/types"

// KeyAgreement generates ephemeral keypairs and derives shared secrets.
// Implementations must be commutative: deriving from (A.priv, B.pub) and
// (B.priv, A.pub) yields the same secret.
type KeyAgreement interface {
	Name() string
	PublicKeySize() int
	GenerateKeyPair() (domaintypes.KeyPair, error)
	DeriveSharedSecret(priv, pub []byte) (domaintypes.SharedSecret, error)
}

// AEAD encrypts and authenticates payloads under a shared secret.
// Open must never return plaintext when authentication fails.
type AEAD interface {
	Name() string
	NonceSize() int
	Overhead() int
	Seal(secret domaintypes.SharedSecret, nonce, plaintext []byte) ([]byte, error)
	Open(secret domaintypes.SharedSecret, nonce, ciphertext []byte) ([]byte, error)
}
