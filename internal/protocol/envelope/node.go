package envelope

import (
	"bytes"
	"fmt"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

// Node is the inference side of the exchange. It holds a long-lived node
// keypair whose public half is published through the model directory.
type Node struct {
	ka   domain.KeyAgreement
	aead domain.AEAD
	kp   domain.KeyPair
}

// NewNode returns a Node that answers with kp.
func NewNode(ka domain.KeyAgreement, aead domain.AEAD, kp domain.KeyPair) (*Node, error) {
	if len(kp.Public) != ka.PublicKeySize() {
		return nil, fmt.Errorf("node public key must be %d bytes for %s", ka.PublicKeySize(), ka.Name())
	}
	return &Node{ka: ka, aead: aead, kp: kp}, nil
}

// PublicKey returns a copy of the node's public key.
func (n *Node) PublicKey() []byte { return append([]byte(nil), n.kp.Public...) }

// OpenRequest authenticates and decrypts env. It returns the plaintext
// request and the shared secret the response must be sealed under. The
// caller wipes the secret when done.
func (n *Node) OpenRequest(env domain.Envelope) ([]byte, domain.SharedSecret, error) {
	var secret domain.SharedSecret

	d, err := decode(env, n.ka, n.aead)
	if err != nil {
		return nil, secret, err
	}
	if !bytes.Equal(d.nodePub, n.kp.Public) {
		return nil, secret, fmt.Errorf("%w: envelope addressed to another node", domain.ErrInvalidEnvelope)
	}

	secret, err = n.ka.DeriveSharedSecret(n.kp.Private, d.clientPub)
	if err != nil {
		return nil, secret, fmt.Errorf("derive shared secret: %w", err)
	}

	plaintext, err := n.aead.Open(secret, d.nonce, d.ciphertext)
	if err != nil {
		crypto.Wipe(secret.Slice())
		return nil, domain.SharedSecret{}, domain.ErrIntegrity
	}
	if !crypto.DigestEqual(plaintext, d.hash) {
		crypto.Wipe(secret.Slice())
		crypto.Wipe(plaintext)
		return nil, domain.SharedSecret{}, fmt.Errorf("%w: plaintext body hash mismatch", domain.ErrIntegrity)
	}
	return plaintext, secret, nil
}

// SealResponse encrypts plaintext under secret with a fresh nonce.
func (n *Node) SealResponse(secret domain.SharedSecret, plaintext []byte) (domain.ResponseEnvelope, error) {
	nonce, err := crypto.RandomBytes(n.aead.NonceSize())
	if err != nil {
		return domain.ResponseEnvelope{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}
	ciphertext, err := n.aead.Seal(secret, nonce, plaintext)
	if err != nil {
		return domain.ResponseEnvelope{}, err
	}
	return domain.ResponseEnvelope{
		Ciphertext:   crypto.B64(ciphertext),
		Nonce:        crypto.B64(nonce),
		ResponseHash: crypto.B64(crypto.Digest(plaintext)),
	}, nil
}
