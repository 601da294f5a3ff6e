package store

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

const (
	// KeysCookieName carries the sealed pending key records.
	KeysCookieName = "confidant_chat_session"

	// maxCookieRecords keeps the sealed cookie under browser size limits.
	maxCookieRecords = 8
)

// cookieRecord holds the three key strings as base64, as the browser-facing
// session format always has.
type cookieRecord struct {
	ClientPrivateKey string `json:"clientPrivateKey"`
	ClientPublicKey  string `json:"clientPublicKey"`
	NodePublicKey    string `json:"nodePublicKey"`
	Suite            string `json:"suite"`
	CreatedUnix      int64  `json:"createdAt"`
}

type cookieState struct {
	Session domain.SessionID                      `json:"sid"`
	Records map[domain.CorrelationID]cookieRecord `json:"records"`
}

// CookieOptions controls the attributes of the emitted cookie.
type CookieOptions struct {
	Secure bool
	Path   string
}

// CookieKeyStore keeps pending key records in an encrypted, http-only,
// SameSite=Strict cookie. It is bound to one HTTP exchange: reads come from
// the request and every mutation rewrites the Set-Cookie header.
type CookieKeyStore struct {
	w     http.ResponseWriter
	r     *http.Request
	codec *CookieCodec
	opts  CookieOptions
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	loaded bool
	state  cookieState
}

// NewCookieKeyStore binds a store to the exchange (w, r).
func NewCookieKeyStore(
	w http.ResponseWriter,
	r *http.Request,
	codec *CookieCodec,
	ttl time.Duration,
	opts CookieOptions,
) *CookieKeyStore {
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieKeyStore{w: w, r: r, codec: codec, opts: opts, ttl: ttl, now: time.Now}
}

// Put stores rec under key, replacing any previous record.
func (s *CookieKeyStore) Put(_ context.Context, key domain.RecordKey, rec domain.SessionKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadLocked(key.Session)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	st.Records[key.Correlation] = cookieRecord{
		ClientPrivateKey: crypto.B64(rec.LocalPrivate),
		ClientPublicKey:  crypto.B64(rec.LocalPublic),
		NodePublicKey:    crypto.B64(rec.RemotePublic),
		Suite:            rec.Suite,
		CreatedUnix:      rec.CreatedAt.UnixNano(),
	}
	s.trimLocked()
	return s.saveLocked()
}

// Get returns the record without removing it.
func (s *CookieKeyStore) Get(_ context.Context, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

// Clear removes the record.
func (s *CookieKeyStore) Clear(_ context.Context, key domain.RecordKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.loadLocked(key.Session)
	if _, ok := st.Records[key.Correlation]; !ok {
		return nil
	}
	delete(st.Records, key.Correlation)
	return s.saveLocked()
}

// Take returns the record and removes it from the cookie.
func (s *CookieKeyStore) Take(_ context.Context, key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.getLocked(key)
	if err != nil || !ok {
		return rec, ok, err
	}
	delete(s.state.Records, key.Correlation)
	return rec, true, s.saveLocked()
}

// Sweep drops expired records from the cookie.
func (s *CookieKeyStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return 0, nil
	}
	now := s.now()
	removed := 0
	for id, cr := range s.state.Records {
		if s.expired(cr, now) {
			delete(s.state.Records, id)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.saveLocked()
}

func (s *CookieKeyStore) getLocked(key domain.RecordKey) (domain.SessionKeyRecord, bool, error) {
	st := s.loadLocked(key.Session)
	cr, ok := st.Records[key.Correlation]
	if !ok {
		return domain.SessionKeyRecord{}, false, nil
	}
	if s.expired(cr, s.now()) {
		delete(st.Records, key.Correlation)
		return domain.SessionKeyRecord{}, false, s.saveLocked()
	}
	rec, err := cr.decode()
	if err != nil {
		// A record we cannot decode is as good as missing.
		delete(st.Records, key.Correlation)
		return domain.SessionKeyRecord{}, false, s.saveLocked()
	}
	return rec, true, nil
}

// loadLocked reads the request cookie once. A cookie sealed for another
// session, or one that fails to unseal, starts an empty state.
func (s *CookieKeyStore) loadLocked(session domain.SessionID) *cookieState {
	if s.loaded && s.state.Session == session {
		return &s.state
	}
	s.loaded = true
	s.state = cookieState{Session: session, Records: map[domain.CorrelationID]cookieRecord{}}

	c, err := s.r.Cookie(KeysCookieName)
	if err != nil {
		return &s.state
	}
	var st cookieState
	if err := s.codec.Unseal(c.Value, &st); err != nil || st.Session != session {
		return &s.state
	}
	if st.Records != nil {
		s.state.Records = st.Records
	}
	return &s.state
}

// trimLocked evicts the oldest records beyond maxCookieRecords.
func (s *CookieKeyStore) trimLocked() {
	if len(s.state.Records) <= maxCookieRecords {
		return
	}
	ids := make([]domain.CorrelationID, 0, len(s.state.Records))
	for id := range s.state.Records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.state.Records[ids[i]].CreatedUnix < s.state.Records[ids[j]].CreatedUnix
	})
	for _, id := range ids[:len(ids)-maxCookieRecords] {
		delete(s.state.Records, id)
	}
}

func (s *CookieKeyStore) saveLocked() error {
	c := &http.Cookie{
		Name:     KeysCookieName,
		Path:     s.opts.Path,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if len(s.state.Records) == 0 {
		c.MaxAge = -1
	} else {
		v, err := s.codec.Seal(s.state)
		if err != nil {
			return err
		}
		c.Value = v
	}
	replaceCookie(s.w.Header(), c)
	return nil
}

func (s *CookieKeyStore) expired(cr cookieRecord, now time.Time) bool {
	return s.ttl > 0 && now.Sub(time.Unix(0, cr.CreatedUnix)) > s.ttl
}

func (cr cookieRecord) decode() (domain.SessionKeyRecord, error) {
	priv, err := crypto.FromB64(cr.ClientPrivateKey)
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	pub, err := crypto.FromB64(cr.ClientPublicKey)
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	node, err := crypto.FromB64(cr.NodePublicKey)
	if err != nil {
		return domain.SessionKeyRecord{}, err
	}
	return domain.SessionKeyRecord{
		LocalPrivate: priv,
		LocalPublic:  pub,
		RemotePublic: node,
		Suite:        cr.Suite,
		CreatedAt:    time.Unix(0, cr.CreatedUnix),
	}, nil
}

// replaceCookie drops earlier Set-Cookie lines for the same name so only
// the latest state reaches the client.
func replaceCookie(h http.Header, c *http.Cookie) {
	prefix := c.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	h.Add("Set-Cookie", c.String())
}

// Compile-time assertion that CookieKeyStore implements domain.SessionKeyStore.
var _ domain.SessionKeyStore = (*CookieKeyStore)(nil)
