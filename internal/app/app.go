package app

import (
	"fmt"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

// Suites resolves key agreement and AEAD implementations by name.
func Suites(kaName, aeadName string) (domain.KeyAgreement, domain.AEAD, error) {
	var ka domain.KeyAgreement
	switch kaName {
	case "", "x25519":
		ka = crypto.NewX25519()
	case "p256":
		ka = crypto.NewP256()
	default:
		return nil, nil, fmt.Errorf("unknown key agreement %q", kaName)
	}

	var aead domain.AEAD
	switch aeadName {
	case "", "aes-256-gcm":
		aead = crypto.NewAESGCM()
	case "chacha20-poly1305":
		aead = crypto.NewChaCha20Poly1305()
	default:
		return nil, nil, fmt.Errorf("unknown cipher %q", aeadName)
	}
	return ka, aead, nil
}
