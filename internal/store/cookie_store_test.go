package store_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"confidant/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newCodec(t *testing.T) *store.CookieCodec {
	t.Helper()
	c, err := store.NewCookieCodec(testSecret)
	require.NoError(t, err)
	return c
}

// carry copies the Set-Cookie headers of rec into a new request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			req.AddCookie(c)
		}
	}
	return req
}

func TestCookieCodec_RejectsWeakSecret(t *testing.T) {
	_, err := store.NewCookieCodec("short")
	require.ErrorIs(t, err, store.ErrWeakSessionSecret)
}

func TestCookieCodec_SealUnseal(t *testing.T) {
	c := newCodec(t)
	v, err := c.Seal(map[string]string{"a": "b"})
	require.NoError(t, err)
	require.NotContains(t, v, "\"a\"")

	var out map[string]string
	require.NoError(t, c.Unseal(v, &out))
	require.Equal(t, "b", out["a"])

	other, err := store.NewCookieCodec(strings.Repeat("z", 32))
	require.NoError(t, err)
	require.Error(t, other.Unseal(v, &out))

	tampered := []byte(v)
	tampered[len(tampered)/2] ^= 0x01
	require.Error(t, c.Unseal(string(tampered), &out))
}

func TestCookieKeyStore_RoundTripAcrossRequests(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	k := key("sess-1", "corr-1")

	w1 := httptest.NewRecorder()
	s1 := store.NewCookieKeyStore(w1, httptest.NewRequest(http.MethodPost, "/", nil), codec, time.Minute, store.CookieOptions{})
	require.NoError(t, s1.Put(ctx, k, testRecord(3)))

	cookies := w1.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	require.Equal(t, store.KeysCookieName, cookies[0].Name)

	w2 := httptest.NewRecorder()
	s2 := store.NewCookieKeyStore(w2, carry(w1), codec, time.Minute, store.CookieOptions{})
	got, ok, err := s2.Take(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{3, 1}, got.LocalPrivate)
	require.Equal(t, []byte{3, 3}, got.RemotePublic)

	// Emptied cookie is deleted.
	out := w2.Result().Cookies()
	require.Len(t, out, 1)
	require.Negative(t, out[0].MaxAge)
}

func TestCookieKeyStore_IgnoresOtherSession(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)

	w1 := httptest.NewRecorder()
	s1 := store.NewCookieKeyStore(w1, httptest.NewRequest(http.MethodPost, "/", nil), codec, time.Minute, store.CookieOptions{})
	require.NoError(t, s1.Put(ctx, key("alice", "c"), testRecord(1)))

	s2 := store.NewCookieKeyStore(httptest.NewRecorder(), carry(w1), codec, time.Minute, store.CookieOptions{})
	_, ok, err := s2.Get(ctx, key("mallory", "c"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCookieKeyStore_SingleHeaderAfterManyWrites(t *testing.T) {
	ctx := context.Background()
	w := httptest.NewRecorder()
	s := store.NewCookieKeyStore(w, httptest.NewRequest(http.MethodPost, "/", nil), newCodec(t), time.Minute, store.CookieOptions{})

	require.NoError(t, s.Put(ctx, key("s", "a"), testRecord(1)))
	require.NoError(t, s.Put(ctx, key("s", "b"), testRecord(2)))
	require.NoError(t, s.Clear(ctx, key("s", "a")))

	require.Len(t, w.Header().Values("Set-Cookie"), 1)

	_, ok, err := s.Get(ctx, key("s", "b"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCookieKeyStore_ExpiredRecordReadsAbsent(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	k := key("sess-1", "old")

	rec := testRecord(5)
	rec.CreatedAt = time.Now().Add(-2 * time.Minute)

	w1 := httptest.NewRecorder()
	s1 := store.NewCookieKeyStore(w1, httptest.NewRequest(http.MethodPost, "/", nil), codec, time.Minute, store.CookieOptions{})
	require.NoError(t, s1.Put(ctx, k, rec))

	w2 := httptest.NewRecorder()
	s2 := store.NewCookieKeyStore(w2, carry(w1), codec, time.Minute, store.CookieOptions{})
	_, ok, err := s2.Take(ctx, k)
	require.NoError(t, err)
	require.False(t, ok)

	// The expired record is evicted from the cookie as well.
	out := w2.Result().Cookies()
	require.Len(t, out, 1)
	require.Negative(t, out[0].MaxAge)
}

func TestCookieKeyStore_SweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	s := store.NewCookieKeyStore(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), newCodec(t), time.Minute, store.CookieOptions{})

	stale := testRecord(1)
	stale.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, s.Put(ctx, key("s", "stale"), stale))
	require.NoError(t, s.Put(ctx, key("s", "fresh"), testRecord(2)))

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, ok, err := s.Get(ctx, key("s", "fresh"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCookieKeyStore_TrimsOldestBeyondLimit(t *testing.T) {
	ctx := context.Background()
	codec := newCodec(t)
	base := time.Now().Add(-30 * time.Second)

	w1 := httptest.NewRecorder()
	s1 := store.NewCookieKeyStore(w1, httptest.NewRequest(http.MethodPost, "/", nil), codec, time.Minute, store.CookieOptions{})
	for i := 0; i < 9; i++ {
		rec := testRecord(byte(i))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s1.Put(ctx, key("s", fmt.Sprintf("c%d", i)), rec))
	}

	s2 := store.NewCookieKeyStore(httptest.NewRecorder(), carry(w1), codec, time.Minute, store.CookieOptions{})
	_, ok, err := s2.Get(ctx, key("s", "c0"))
	require.NoError(t, err)
	require.False(t, ok, "oldest record should be evicted")

	for i := 1; i < 9; i++ {
		got, ok, err := s2.Get(ctx, key("s", fmt.Sprintf("c%d", i)))
		require.NoError(t, err)
		require.True(t, ok, "record c%d", i)
		require.Equal(t, []byte{byte(i), 1}, got.LocalPrivate)
	}
}
