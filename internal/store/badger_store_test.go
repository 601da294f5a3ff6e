package store_test

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"confidant/internal/crypto"
	"confidant/internal/store"
)

func openBadger(t *testing.T, ttl time.Duration) *store.BadgerKeyStore {
	t.Helper()
	s, err := store.OpenBadgerKeyStore(t.TempDir(), newCodec(t), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerKeyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openBadger(t, time.Minute)
	k := key("s1", "c1")

	require.NoError(t, s.Put(ctx, k, testRecord(7)))

	got, ok, err := s.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{7, 1}, got.LocalPrivate)
	require.Equal(t, []byte{7, 3}, got.RemotePublic)
	require.Equal(t, "x25519", got.Suite)

	taken, ok, err := s.Take(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, got.LocalPublic, taken.LocalPublic)

	_, ok, err = s.Get(ctx, k)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Clear(ctx, k))
}

func TestBadgerKeyStore_SweepRemovesStaleRecords(t *testing.T) {
	ctx := context.Background()
	s := openBadger(t, time.Hour)

	rec := testRecord(1)
	rec.CreatedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.Put(ctx, key("s1", "stale"), rec))
	require.NoError(t, s.Put(ctx, key("s1", "fresh"), testRecord(2)))

	_, ok, err := s.Get(ctx, key("s1", "stale"))
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, ok, err = s.Get(ctx, key("s1", "fresh"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBadgerKeyStore_RequiresCodec(t *testing.T) {
	_, err := store.OpenBadgerKeyStore(t.TempDir(), nil, time.Minute)
	require.Error(t, err)
}

func TestBadgerKeyStore_NoPlaintextKeysOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	codec := newCodec(t)

	kp, err := crypto.NewX25519().GenerateKeyPair()
	require.NoError(t, err)
	rec := testRecord(0)
	rec.LocalPrivate = append([]byte(nil), kp.Private...)
	rec.LocalPublic = kp.Public

	s, err := store.OpenBadgerKeyStore(dir, codec, time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, key("s1", "c1"), rec))
	require.NoError(t, s.Close())

	needles := [][]byte{kp.Private, []byte(crypto.B64(kp.Private))}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, n := range needles {
			require.False(t, bytes.Contains(b, n), "private key found in %s", d.Name())
		}
		return nil
	})
	require.NoError(t, err)

	// The record is still readable with the same secret after reopening.
	s, err = store.OpenBadgerKeyStore(dir, codec, time.Minute)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Take(ctx, key("s1", "c1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, kp.Private, got.LocalPrivate)
}

func TestBadgerKeyStore_OtherSecretReadsAbsent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.OpenBadgerKeyStore(dir, newCodec(t), time.Minute)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, key("s1", "c1"), testRecord(4)))
	require.NoError(t, s.Close())

	other, err := store.NewCookieCodec(strings.Repeat("z", store.MinSessionSecretBytes))
	require.NoError(t, err)
	s, err = store.OpenBadgerKeyStore(dir, other, time.Minute)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(ctx, key("s1", "c1"))
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestBadgerKeyStore_ConcurrentTakeSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := openBadger(t, time.Minute)
	k := key("s1", "race")
	require.NoError(t, s.Put(ctx, k, testRecord(9)))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.Take(ctx, k)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())

	_, ok, err := s.Get(ctx, k)
	require.NoError(t, err)
	require.False(t, ok)
}
