package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"confidant/internal/domain"
)

const badgerKeyPrefix = "keyrec/"

// takeAttempts bounds retries of a Take that lost a transaction conflict.
const takeAttempts = 3

// BadgerKeyStore persists pending key records in a Badger database so they
// survive an application server restart. Entries carry a Badger TTL, so
// orphaned records disappear even if nobody calls Sweep. Every value is
// sealed with the session codec; no key material reaches disk in the clear.
type BadgerKeyStore struct {
	db    *badger.DB
	codec *CookieCodec
	ttl   time.Duration
	now   func() time.Time
}

// OpenBadgerKeyStore opens (or creates) a database under dir whose values
// are sealed with codec.
func OpenBadgerKeyStore(dir string, codec *CookieCodec, ttl time.Duration) (*BadgerKeyStore, error) {
	if codec == nil {
		return nil, errors.New("open key store: a session codec is required")
	}
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	return NewBadgerKeyStore(db, codec, ttl), nil
}

// NewBadgerKeyStore wraps an already open database.
func NewBadgerKeyStore(db *badger.DB, codec *CookieCodec, ttl time.Duration) *BadgerKeyStore {
	return &BadgerKeyStore{db: db, codec: codec, ttl: ttl, now: time.Now}
}

// Close closes the underlying database.
func (s *BadgerKeyStore) Close() error { return s.db.Close() }

// Put stores rec under key, replacing any previous record.
func (s *BadgerKeyStore) Put(_ context.Context, key domain.RecordKey, rec domain.SessionKeyRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	sealed, err := s.codec.Seal(rec)
	if err != nil {
		return fmt.Errorf("seal key record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(badgerKey(key), []byte(sealed))
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get returns the record without removing it.
func (s *BadgerKeyStore) Get(_ context.Context, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	var (
		rec domain.SessionKeyRecord
		ok  bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, ok, err = s.load(txn, key)
		return err
	})
	return rec, ok, err
}

// Clear removes the record.
func (s *BadgerKeyStore) Clear(_ context.Context, key domain.RecordKey) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(key))
	})
}

// Take reads and deletes the record in one transaction. When two Takes race
// on one key, the loser's commit fails with a conflict and it runs again; by
// then the winner's delete is visible, so the loser reads the record as
// absent instead of guessing.
func (s *BadgerKeyStore) Take(_ context.Context, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	var (
		rec domain.SessionKeyRecord
		ok  bool
		err error
	)
	for attempt := 0; attempt < takeAttempts; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			var err error
			rec, ok, err = s.load(txn, key)
			if err != nil || !ok {
				return err
			}
			return txn.Delete(badgerKey(key))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return domain.SessionKeyRecord{}, false, fmt.Errorf("take key record: %w", err)
	}
	return rec, ok, nil
}

// Sweep deletes records whose CreatedAt is older than the TTL. Badger
// already hides entries past their TTL; this also covers records written
// with a longer TTL by an earlier configuration, and records that no longer
// unseal under the current secret.
func (s *BadgerKeyStore) Sweep(_ context.Context) (int, error) {
	now := s.now()
	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rec, err := s.decode(item)
			if err != nil || rec.Expired(now, s.ttl) {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

func (s *BadgerKeyStore) load(txn *badger.Txn, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	item, err := txn.Get(badgerKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.SessionKeyRecord{}, false, nil
	}
	if err != nil {
		return domain.SessionKeyRecord{}, false, err
	}
	rec, err := s.decode(item)
	if err != nil {
		// Sealed under another secret or corrupted: unusable either way.
		return domain.SessionKeyRecord{}, false, nil
	}
	if rec.Expired(s.now(), s.ttl) {
		return domain.SessionKeyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *BadgerKeyStore) decode(item *badger.Item) (domain.SessionKeyRecord, error) {
	var rec domain.SessionKeyRecord
	err := item.Value(func(v []byte) error {
		return s.codec.Unseal(string(v), &rec)
	})
	return rec, err
}

func badgerKey(key domain.RecordKey) []byte {
	return []byte(badgerKeyPrefix + key.String())
}

// Compile-time assertion that BadgerKeyStore implements domain.SessionKeyStore.
var _ domain.SessionKeyStore = (*BadgerKeyStore)(nil)
