package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
)

// DigestBytes is the plaintext digest length.
const DigestBytes = sha256.Size

// Digest returns SHA-256(b).
func Digest(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// DigestEqual compares a digest of b against want in constant time.
func DigestEqual(b, want []byte) bool {
	return subtle.ConstantTimeCompare(Digest(b), want) == 1
}
