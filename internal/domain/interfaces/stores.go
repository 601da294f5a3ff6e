package interfaces

import (
	"context"

	domaintypes "confidant/internal/domain/types"
)

// SessionKeyStore holds pending key records between sealing a request and
// opening its response.
type SessionKeyStore interface {
	// Put stores rec under key, replacing any previous record.
	Put(ctx context.Context, key domaintypes.RecordKey, rec domaintypes.SessionKeyRecord) error
	// Get returns the record without removing it. Expired records are absent.
	Get(ctx context.Context, key domaintypes.RecordKey) (domaintypes.SessionKeyRecord, bool, error)
	// Clear removes the record. Clearing a missing record is not an error.
	Clear(ctx context.Context, key domaintypes.RecordKey) error
	// Take atomically returns and removes the record.
	Take(ctx context.Context, key domaintypes.RecordKey) (domaintypes.SessionKeyRecord, bool, error)
	// Sweep evicts expired records and reports how many were removed.
	Sweep(ctx context.Context) (int, error)
}
