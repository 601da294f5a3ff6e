package store

import (
	"errors"
	"fmt"
	"os"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

// keyFile is the on-disk form of a long-lived node keypair.
type keyFile struct {
	Suite      string `json:"suite"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// SaveKeyPair writes kp to path with owner-only permissions.
func SaveKeyPair(path, suite string, kp domain.KeyPair) error {
	return writeJSON(path, keyFile{
		Suite:      suite,
		PrivateKey: crypto.B64(kp.Private),
		PublicKey:  crypto.B64(kp.Public),
	}, 0o600)
}

// LoadKeyPair reads a keypair written by SaveKeyPair. It fails with
// os.ErrNotExist when path is missing.
func LoadKeyPair(path string) (suite string, kp domain.KeyPair, err error) {
	var kf keyFile
	found, err := readJSON(path, &kf)
	if err != nil {
		return "", domain.KeyPair{}, fmt.Errorf("read key file %s: %w", path, err)
	}
	if !found {
		return "", domain.KeyPair{}, fmt.Errorf("key file %s: %w", path, os.ErrNotExist)
	}
	if kp.Private, err = crypto.FromB64(kf.PrivateKey); err != nil {
		return "", domain.KeyPair{}, fmt.Errorf("key file %s: private key: %w", path, err)
	}
	if kp.Public, err = crypto.FromB64(kf.PublicKey); err != nil {
		return "", domain.KeyPair{}, fmt.Errorf("key file %s: public key: %w", path, err)
	}
	return kf.Suite, kp, nil
}

// LoadOrCreateKeyPair loads the keypair at path, generating and saving a
// fresh one with ka when the file does not exist yet.
func LoadOrCreateKeyPair(path string, ka domain.KeyAgreement) (domain.KeyPair, bool, error) {
	suite, kp, err := LoadKeyPair(path)
	if err == nil {
		if suite != ka.Name() {
			return domain.KeyPair{}, false, fmt.Errorf("key file %s holds %q keys, want %q", path, suite, ka.Name())
		}
		return kp, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return domain.KeyPair{}, false, err
	}
	kp, err = ka.GenerateKeyPair()
	if err != nil {
		return domain.KeyPair{}, false, err
	}
	if err := SaveKeyPair(path, ka.Name(), kp); err != nil {
		return domain.KeyPair{}, false, err
	}
	return kp, true, nil
}
