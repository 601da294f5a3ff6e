package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

// Canonical serializes v as compact JSON in struct field order, without HTML
// escaping and without a trailing newline. Byte slices and json.RawMessage
// values are compacted but otherwise passed through.
func Canonical(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return compact(b)
	case json.RawMessage:
		return compact(b)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("serialize request: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func compact(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, fmt.Errorf("serialize request: %w", err)
	}
	return buf.Bytes(), nil
}

// decoded holds the binary fields of a validated request envelope.
type decoded struct {
	ciphertext []byte
	clientPub  []byte
	nodePub    []byte
	nonce      []byte
	salt       []byte
	hash       []byte
}

// Validate checks that env is well-formed for the given suites.
func Validate(env domain.Envelope, ka domain.KeyAgreement, aead domain.AEAD) error {
	_, err := decode(env, ka, aead)
	return err
}

func decode(env domain.Envelope, ka domain.KeyAgreement, aead domain.AEAD) (decoded, error) {
	var (
		d   decoded
		err error
	)
	fields := []struct {
		name string
		in   string
		out  *[]byte
		size int
	}{
		{"ciphertext", env.Ciphertext, &d.ciphertext, -1},
		{"clientDhPublicKey", env.ClientDHPublicKey, &d.clientPub, ka.PublicKeySize()},
		{"nodeDhPublicKey", env.NodeDHPublicKey, &d.nodePub, ka.PublicKeySize()},
		{"nonce", env.Nonce, &d.nonce, aead.NonceSize()},
		{"salt", env.Salt, &d.salt, crypto.SaltBytes},
		{"plaintextBodyHash", env.PlaintextBodyHash, &d.hash, crypto.DigestBytes},
	}
	for _, f := range fields {
		if *f.out, err = crypto.FromB64(f.in); err != nil {
			return decoded{}, fmt.Errorf("%w: %s is not base64", domain.ErrInvalidEnvelope, f.name)
		}
		if f.size >= 0 && len(*f.out) != f.size {
			return decoded{}, fmt.Errorf("%w: %s must be %d bytes, got %d",
				domain.ErrInvalidEnvelope, f.name, f.size, len(*f.out))
		}
	}
	if len(d.ciphertext) < aead.Overhead() {
		return decoded{}, fmt.Errorf("%w: ciphertext shorter than tag", domain.ErrInvalidEnvelope)
	}
	if env.ModelName == "" {
		return decoded{}, fmt.Errorf("%w: modelName is empty", domain.ErrInvalidEnvelope)
	}
	return d, nil
}
