package domain

import "errors"

var (
	// ErrKeyGeneration means the random source or key primitive failed.
	// It indicates a broken environment and is never retried.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrEncryption means the AEAD primitive refused to seal.
	ErrEncryption = errors.New("encryption failed")

	// ErrNoKeys means no live key record exists for the exchange.
	ErrNoKeys = errors.New("no encryption keys found for session")

	// ErrIntegrity means authentication of a ciphertext or digest failed.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrInvalidEnvelope means a wire envelope is malformed.
	ErrInvalidEnvelope = errors.New("invalid envelope")
)
