package envelope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"confidant/internal/domain"
)

// ErrTurnState is returned when a turn is driven out of order.
var ErrTurnState = errors.New("turn: invalid transition")

// Turn tracks one confidential request/response exchange:
//
//	IDLE -> KEYS_GENERATED -> ENCRYPTED_SENT -> AWAITING_RESPONSE
//	     -> DECRYPTED_CONSUMED | FAILED
//
// Any failure moves the turn to FAILED and clears the key record.
type Turn struct {
	sealer *Sealer
	log    *slog.Logger
	phase  domain.TurnPhase
	key    domain.RecordKey
}

// NewTurn returns an idle turn driven by s.
func NewTurn(s *Sealer) *Turn {
	return &Turn{sealer: s, log: s.log, phase: domain.PhaseIdle}
}

// Phase returns the current phase.
func (t *Turn) Phase() domain.TurnPhase { return t.phase }

// Key returns the record key, zero until Seal succeeds.
func (t *Turn) Key() domain.RecordKey { return t.key }

// Seal builds the request envelope and records the keys.
func (t *Turn) Seal(
	ctx context.Context,
	session domain.SessionID,
	request any,
	remotePublic []byte,
	routingID int64,
	model string,
) (domain.Envelope, error) {
	if t.phase != domain.PhaseIdle {
		return domain.Envelope{}, fmt.Errorf("%w: seal from %s", ErrTurnState, t.phase)
	}
	env, key, err := t.sealer.Build(ctx, session, request, remotePublic, routingID, model)
	if err != nil {
		t.move(domain.PhaseFailed)
		return domain.Envelope{}, err
	}
	t.key = key
	t.move(domain.PhaseKeysGenerated)
	return env, nil
}

// Sent marks the envelope as handed to the transport.
func (t *Turn) Sent() error {
	if t.phase != domain.PhaseKeysGenerated {
		return fmt.Errorf("%w: sent from %s", ErrTurnState, t.phase)
	}
	t.move(domain.PhaseEncryptedSent)
	t.move(domain.PhaseAwaitingResponse)
	return nil
}

// Open decrypts the response into out. The record is consumed on success
// and on failure.
func (t *Turn) Open(ctx context.Context, resp domain.ResponseEnvelope, out any) error {
	if t.phase != domain.PhaseAwaitingResponse {
		return fmt.Errorf("%w: open from %s", ErrTurnState, t.phase)
	}
	if err := t.sealer.Open(ctx, t.key, resp, out); err != nil {
		t.move(domain.PhaseFailed)
		return err
	}
	t.move(domain.PhaseDecryptedConsumed)
	return nil
}

// Fail abandons the turn and clears its key record. It is a no-op on a
// terminal turn.
func (t *Turn) Fail(ctx context.Context, cause error) {
	if t.phase.Terminal() {
		return
	}
	if t.phase != domain.PhaseIdle {
		if err := t.sealer.keys.Clear(ctx, t.key); err != nil {
			t.log.Warn("clear session keys", "key", t.key.String(), "err", err)
		}
	}
	t.log.Debug("turn failed", "key", t.key.String(), "phase", t.phase.String(), "err", cause)
	t.move(domain.PhaseFailed)
}

func (t *Turn) move(to domain.TurnPhase) {
	t.log.Debug("turn transition", "key", t.key.String(), "from", t.phase.String(), "to", to.String())
	t.phase = to
}
