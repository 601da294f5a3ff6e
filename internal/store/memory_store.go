package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

// DefaultTTL bounds how long a pending key record may wait for its response.
const DefaultTTL = 2 * time.Minute

// MemoryKeyStore keeps pending key records in process memory, keyed by
// session and correlation id. Expired records are evicted inline on every
// access and by Sweep.
type MemoryKeyStore struct {
	mu      sync.Mutex
	records map[domain.RecordKey]domain.SessionKeyRecord
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures a MemoryKeyStore.
type MemoryOption func(*MemoryKeyStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryKeyStore) { s.now = now }
}

// NewMemoryKeyStore returns an empty store whose records expire after ttl.
func NewMemoryKeyStore(ttl time.Duration, opts ...MemoryOption) *MemoryKeyStore {
	s := &MemoryKeyStore{
		records: make(map[domain.RecordKey]domain.SessionKeyRecord),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Put stores rec under key, replacing any previous record.
func (s *MemoryKeyStore) Put(_ context.Context, key domain.RecordKey, rec domain.SessionKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if old, ok := s.records[key]; ok {
		wipeRecord(&old)
	}
	s.records[key] = cloneRecord(rec)
	return nil
}

// Get returns a copy of the record without removing it.
func (s *MemoryKeyStore) Get(_ context.Context, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveLocked(key)
	if !ok {
		return domain.SessionKeyRecord{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

// Clear removes the record.
func (s *MemoryKeyStore) Clear(_ context.Context, key domain.RecordKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok {
		wipeRecord(&rec)
		delete(s.records, key)
	}
	return nil
}

// Take returns the record and removes it in one step.
func (s *MemoryKeyStore) Take(_ context.Context, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.liveLocked(key)
	if !ok {
		return domain.SessionKeyRecord{}, false, nil
	}
	delete(s.records, key)
	return rec, true, nil
}

// Sweep evicts every expired record.
func (s *MemoryKeyStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(), nil
}

// Len reports the number of stored records, expired or not.
func (s *MemoryKeyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RunJanitor sweeps every interval until ctx is done.
func (s *MemoryKeyStore) RunJanitor(ctx context.Context, interval time.Duration, log *slog.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, _ := s.Sweep(ctx)
			if n > 0 && log != nil {
				log.Debug("evicted orphaned key records", "count", n)
			}
		}
	}
}

// liveLocked returns the record if present and fresh, evicting it when
// expired. Must be called with mu held.
func (s *MemoryKeyStore) liveLocked(key domain.RecordKey) (domain.SessionKeyRecord, bool) {
	rec, ok := s.records[key]
	if !ok {
		return domain.SessionKeyRecord{}, false
	}
	if rec.Expired(s.now(), s.ttl) {
		wipeRecord(&rec)
		delete(s.records, key)
		return domain.SessionKeyRecord{}, false
	}
	return rec, true
}

// sweepLocked must be called with mu held.
func (s *MemoryKeyStore) sweepLocked() int {
	now := s.now()
	removed := 0
	for k, rec := range s.records {
		if rec.Expired(now, s.ttl) {
			wipeRecord(&rec)
			delete(s.records, k)
			removed++
		}
	}
	return removed
}

func cloneRecord(rec domain.SessionKeyRecord) domain.SessionKeyRecord {
	rec.LocalPrivate = append([]byte(nil), rec.LocalPrivate...)
	rec.LocalPublic = append([]byte(nil), rec.LocalPublic...)
	rec.RemotePublic = append([]byte(nil), rec.RemotePublic...)
	return rec
}

func wipeRecord(rec *domain.SessionKeyRecord) {
	crypto.Wipe(rec.LocalPrivate)
}

// Compile-time assertion that MemoryKeyStore implements domain.SessionKeyStore.
var _ domain.SessionKeyStore = (*MemoryKeyStore)(nil)
