package types

import "time"

// SessionKeyRecord is what the application server keeps between sealing a
// request and opening its response.
type SessionKeyRecord struct {
	LocalPrivate []byte    `json:"local_private"`
	LocalPublic  []byte    `json:"local_public"`
	RemotePublic []byte    `json:"remote_public"`
	Suite        string    `json:"suite"`
	CreatedAt    time.Time `json:"created_at"`
}

// Expired reports whether the record is older than ttl at now.
// A zero ttl never expires.
func (r SessionKeyRecord) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(r.CreatedAt) > ttl
}

// TurnPhase is the state of one confidential conversation turn.
type TurnPhase int

const (
	PhaseIdle TurnPhase = iota
	PhaseKeysGenerated
	PhaseEncryptedSent
	PhaseAwaitingResponse
	PhaseDecryptedConsumed
	PhaseFailed
)

var phaseNames = [...]string{
	"IDLE",
	"KEYS_GENERATED",
	"ENCRYPTED_SENT",
	"AWAITING_RESPONSE",
	"DECRYPTED_CONSUMED",
	"FAILED",
}

// String returns the phase name.
func (p TurnPhase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "UNKNOWN"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition is allowed.
func (p TurnPhase) Terminal() bool {
	return p == PhaseDecryptedConsumed || p == PhaseFailed
}
