package envelope

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

// Sealer builds request envelopes and opens the matching responses on the
// application server. It holds its capabilities explicitly; nothing is
// process-wide.
type Sealer struct {
	ka   domain.KeyAgreement
	aead domain.AEAD
	keys domain.SessionKeyStore
	log  *slog.Logger
	now  func() time.Time
	ids  func() domain.CorrelationID
}

// Option configures a Sealer.
type Option func(*Sealer)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option { return func(s *Sealer) { s.log = l } }

// WithClock overrides the time stamped on key records.
func WithClock(now func() time.Time) Option { return func(s *Sealer) { s.now = now } }

// WithCorrelationIDs overrides correlation id generation.
func WithCorrelationIDs(f func() domain.CorrelationID) Option {
	return func(s *Sealer) { s.ids = f }
}

// NewSealer returns a Sealer over the given capabilities.
func NewSealer(
	ka domain.KeyAgreement,
	aead domain.AEAD,
	keys domain.SessionKeyStore,
	opts ...Option,
) *Sealer {
	s := &Sealer{
		ka:   ka,
		aead: aead,
		keys: keys,
		log:  slog.New(slog.DiscardHandler),
		now:  time.Now,
		ids:  newCorrelationID,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// WithStore returns a copy of s that keeps records in keys. Stores bound to
// a single HTTP exchange use this per request.
func (s *Sealer) WithStore(keys domain.SessionKeyStore) *Sealer {
	c := *s
	c.keys = keys
	return &c
}

// Store returns the record store in use.
func (s *Sealer) Store() domain.SessionKeyStore { return s.keys }

// Build seals request for the node holding remotePublic and records the
// ephemeral keys under a fresh correlation id within session.
func (s *Sealer) Build(
	ctx context.Context,
	session domain.SessionID,
	request any,
	remotePublic []byte,
	routingID int64,
	model string,
) (domain.Envelope, domain.RecordKey, error) {
	if len(remotePublic) != s.ka.PublicKeySize() {
		return domain.Envelope{}, domain.RecordKey{}, fmt.Errorf("%w: node public key must be %d bytes, got %d",
			domain.ErrInvalidEnvelope, s.ka.PublicKeySize(), len(remotePublic))
	}

	kp, err := s.ka.GenerateKeyPair()
	if err != nil {
		return domain.Envelope{}, domain.RecordKey{}, err
	}
	defer crypto.Wipe(kp.Private)

	secret, err := s.ka.DeriveSharedSecret(kp.Private, remotePublic)
	if err != nil {
		return domain.Envelope{}, domain.RecordKey{}, fmt.Errorf("derive shared secret: %w", err)
	}
	defer crypto.Wipe(secret.Slice())

	plaintext, err := Canonical(request)
	if err != nil {
		return domain.Envelope{}, domain.RecordKey{}, err
	}
	defer crypto.Wipe(plaintext)
	digest := crypto.Digest(plaintext)

	nonce, err := crypto.RandomBytes(s.aead.NonceSize())
	if err != nil {
		return domain.Envelope{}, domain.RecordKey{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}
	salt, err := crypto.RandomBytes(crypto.SaltBytes)
	if err != nil {
		return domain.Envelope{}, domain.RecordKey{}, fmt.Errorf("%w: %v", domain.ErrKeyGeneration, err)
	}

	ciphertext, err := s.aead.Seal(secret, nonce, plaintext)
	if err != nil {
		s.log.Debug("seal failed", "aead", s.aead.Name(), "err", err)
		return domain.Envelope{}, domain.RecordKey{}, fmt.Errorf("%w: request could not be sealed", domain.ErrEncryption)
	}

	key := domain.RecordKey{Session: session, Correlation: s.ids()}
	rec := domain.SessionKeyRecord{
		LocalPrivate: kp.Private,
		LocalPublic:  kp.Public,
		RemotePublic: append([]byte(nil), remotePublic...),
		Suite:        s.ka.Name(),
		CreatedAt:    s.now(),
	}
	if err := s.keys.Put(ctx, key, rec); err != nil {
		return domain.Envelope{}, domain.RecordKey{}, fmt.Errorf("store session keys: %w", err)
	}

	s.log.Debug("sealed confidential request",
		"key", key.String(),
		"client_key", crypto.Fingerprint(kp.Public),
		"node_key", crypto.Fingerprint(remotePublic),
		"stack", routingID,
		"bytes", len(plaintext))

	return domain.Envelope{
		Ciphertext:        crypto.B64(ciphertext),
		ClientDHPublicKey: crypto.B64(kp.Public),
		NodeDHPublicKey:   crypto.B64(remotePublic),
		Nonce:             crypto.B64(nonce),
		Salt:              crypto.B64(salt),
		PlaintextBodyHash: crypto.B64(digest),
		ModelName:         model,
		StackSmallID:      routingID,
	}, key, nil
}

// OpenBytes decrypts resp with the record stored under key and returns the
// plaintext. The record is consumed whether or not decryption succeeds.
func (s *Sealer) OpenBytes(
	ctx context.Context,
	key domain.RecordKey,
	resp domain.ResponseEnvelope,
) ([]byte, error) {
	rec, ok, err := s.keys.Take(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load session keys: %w", err)
	}
	if !ok {
		s.log.Warn("no session keys for response", "key", key.String())
		return nil, domain.ErrNoKeys
	}
	defer crypto.Wipe(rec.LocalPrivate)

	if rec.Suite != "" && rec.Suite != s.ka.Name() {
		s.log.Warn("session keys from another suite", "key", key.String(), "suite", rec.Suite)
		return nil, fmt.Errorf("%w: record suite %q", domain.ErrNoKeys, rec.Suite)
	}

	ciphertext, err := crypto.FromB64(resp.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext is not base64", domain.ErrInvalidEnvelope)
	}
	nonce, err := crypto.FromB64(resp.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce is not base64", domain.ErrInvalidEnvelope)
	}

	secret, err := s.ka.DeriveSharedSecret(rec.LocalPrivate, rec.RemotePublic)
	if err != nil {
		return nil, fmt.Errorf("derive shared secret: %w", err)
	}
	defer crypto.Wipe(secret.Slice())

	plaintext, err := s.aead.Open(secret, nonce, ciphertext)
	if err != nil {
		s.log.Warn("response failed authentication", "key", key.String())
		return nil, domain.ErrIntegrity
	}

	if resp.ResponseHash != "" {
		want, err := crypto.FromB64(resp.ResponseHash)
		if err != nil || !crypto.DigestEqual(plaintext, want) {
			crypto.Wipe(plaintext)
			s.log.Warn("response digest mismatch", "key", key.String())
			return nil, fmt.Errorf("%w: response digest mismatch", domain.ErrIntegrity)
		}
	}
	return plaintext, nil
}

// Open decrypts resp and JSON-decodes the plaintext into out.
func (s *Sealer) Open(
	ctx context.Context,
	key domain.RecordKey,
	resp domain.ResponseEnvelope,
	out any,
) error {
	plaintext, err := s.OpenBytes(ctx, key, resp)
	if err != nil {
		return err
	}
	defer crypto.Wipe(plaintext)
	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newCorrelationID() domain.CorrelationID {
	return domain.CorrelationID(uuid.NewString())
}
