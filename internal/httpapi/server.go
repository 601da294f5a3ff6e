package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"confidant/internal/domain"
	"confidant/internal/logging"
	"confidant/internal/services/chat"
	"confidant/internal/store"
)

// SessionCookieName identifies the browser session.
const SessionCookieName = "confidant_sid"

// maxBody caps the request body of /api/chat.
const maxBody = 1 << 20

// Options configure a Server.
type Options struct {
	// Cookies, when set, makes the server keep key records in a sealed
	// cookie instead of the chat service's own store.
	Cookies      *store.CookieCodec
	TTL          time.Duration
	SecureCookie bool
}

// Server serves the chat API.
type Server struct {
	chat *chat.Service
	opts Options
	log  *slog.Logger
	mux  *http.ServeMux
}

type chatRequest struct {
	Messages     []domain.Message `json:"messages"`
	Confidential bool             `json:"confidential"`
}

// New returns a Server over svc.
func New(svc *chat.Service, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	if opts.TTL <= 0 {
		opts.TTL = store.DefaultTTL
	}
	s := &Server{chat: svc, opts: opts, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// Handler returns s wrapped in the access log.
func (s *Server) Handler() http.Handler { return logging.AccessLog(s.log, s) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}
	session := s.session(w, r)

	var (
		msg domain.Message
		err error
	)
	if req.Confidential {
		svc := s.chat
		if s.opts.Cookies != nil {
			svc = svc.WithKeys(store.NewCookieKeyStore(w, r, s.opts.Cookies, s.opts.TTL,
				store.CookieOptions{Secure: s.opts.SecureCookie}))
		}
		msg, err = svc.SendConfidential(r.Context(), session, req.Messages)
	} else {
		msg, err = s.chat.Send(r.Context(), req.Messages)
	}
	if err != nil {
		s.writeChatError(r.Context(), w, session, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) writeChatError(ctx context.Context, w http.ResponseWriter, session domain.SessionID, err error) {
	switch {
	case errors.Is(err, chat.ErrBadMessages):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrKeyGeneration):
		s.log.ErrorContext(ctx, "key generation failed", "session", session.String())
		writeError(w, http.StatusInternalServerError, "internal error")
	case errors.Is(err, chat.ErrConfidential):
		writeError(w, http.StatusBadGateway, chat.ErrConfidential.Error())
	default:
		s.log.WarnContext(ctx, "chat failed", "session", session.String(), "err", err)
		writeError(w, http.StatusBadGateway, "failed to get response from AI")
	}
}

// session returns the caller's session id, issuing one when absent.
func (s *Server) session(w http.ResponseWriter, r *http.Request) domain.SessionID {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return domain.SessionID(c.Value)
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return domain.SessionID(id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
