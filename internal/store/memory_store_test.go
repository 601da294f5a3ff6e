package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"confidant/internal/domain"
	"confidant/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testRecord(b byte) domain.SessionKeyRecord {
	return domain.SessionKeyRecord{
		LocalPrivate: []byte{b, 1},
		LocalPublic:  []byte{b, 2},
		RemotePublic: []byte{b, 3},
		Suite:        "x25519",
	}
}

func key(sess, corr string) domain.RecordKey {
	return domain.RecordKey{Session: domain.SessionID(sess), Correlation: domain.CorrelationID(corr)}
}

func TestMemoryKeyStore_PutGetClear(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryKeyStore(time.Minute)
	k := key("s1", "c1")

	require.NoError(t, s.Put(ctx, k, testRecord(1)))
	got, ok, err := s.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 1}, got.LocalPrivate)
	require.False(t, got.CreatedAt.IsZero())

	// Get does not consume.
	_, ok, err = s.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Clear(ctx, k))
	_, ok, err = s.Get(ctx, k)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Clear(ctx, k), "clearing twice is not an error")
}

func TestMemoryKeyStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryKeyStore(time.Minute)
	k := key("s1", "c1")

	require.NoError(t, s.Put(ctx, k, testRecord(1)))
	require.NoError(t, s.Put(ctx, k, testRecord(2)))
	got, ok, err := s.Get(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{2, 1}, got.LocalPrivate)
	require.Equal(t, 1, s.Len())
}

func TestMemoryKeyStore_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryKeyStore(time.Minute)
	k := key("s1", "c1")
	require.NoError(t, s.Put(ctx, k, testRecord(1)))

	_, ok, err := s.Take(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.Take(ctx, k)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryKeyStore_RecordsAreIsolatedPerCorrelation(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryKeyStore(time.Minute)

	require.NoError(t, s.Put(ctx, key("s1", "a"), testRecord(1)))
	require.NoError(t, s.Put(ctx, key("s1", "b"), testRecord(2)))

	a, ok, err := s.Take(ctx, key("s1", "a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{1, 1}, a.LocalPrivate)

	b, ok, err := s.Get(ctx, key("s1", "b"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{2, 1}, b.LocalPrivate)
}

func TestMemoryKeyStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &fakeClock{now: time.Now()}
	s := store.NewMemoryKeyStore(time.Minute, store.WithClock(clk.Now))

	require.NoError(t, s.Put(ctx, key("s1", "old"), testRecord(1)))
	clk.Advance(45 * time.Second)
	require.NoError(t, s.Put(ctx, key("s1", "new"), testRecord(2)))
	clk.Advance(30 * time.Second)

	_, ok, err := s.Get(ctx, key("s1", "old"))
	require.NoError(t, err)
	require.False(t, ok, "expired record must read as absent")

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n, "Get already evicted the only expired record")

	clk.Advance(time.Minute)
	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Zero(t, s.Len())
}

func TestMemoryKeyStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryKeyStore(time.Minute)
	k := key("s1", "c1")
	require.NoError(t, s.Put(ctx, k, testRecord(1)))

	got, _, err := s.Get(ctx, k)
	require.NoError(t, err)
	got.LocalPrivate[0] = 0xFF

	again, _, err := s.Get(ctx, k)
	require.NoError(t, err)
	require.Equal(t, byte(1), again.LocalPrivate[0])
}

func TestMemoryKeyStore_ConcurrentTakeHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryKeyStore(time.Minute)
	k := key("s1", "c1")
	require.NoError(t, s.Put(ctx, k, testRecord(1)))

	var wg sync.WaitGroup
	results := make(chan bool, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, _ := s.Take(ctx, k)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	require.Equal(t, 1, winners)
}

func TestMemoryKeyStore_JanitorEvicts(t *testing.T) {
	clk := &fakeClock{now: time.Now()}
	s := store.NewMemoryKeyStore(time.Second, store.WithClock(clk.Now))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := range 4 {
		require.NoError(t, s.Put(ctx, key("s", fmt.Sprint(i)), testRecord(byte(i))))
	}
	clk.Advance(time.Hour)

	go s.RunJanitor(ctx, 5*time.Millisecond, nil)
	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}
