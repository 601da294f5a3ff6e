package devnode

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"confidant/internal/crypto"
	"confidant/internal/domain"
	"confidant/internal/protocol/envelope"
)

// maxBody caps request bodies, matching the application server.
const maxBody = 1 << 20

// Server is the development inference node.
type Server struct {
	node    *envelope.Node
	stackID int64
	apiKey  string
	log     *slog.Logger
	mux     *http.ServeMux
}

// New returns a Server answering as node under routing id stackID.
func New(node *envelope.Node, stackID int64, apiKey string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{node: node, stackID: stackID, apiKey: apiKey, log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /v1/nodes/models/{model...}", s.handleNode)
	s.mux.HandleFunc("POST /v1/confidential/chat/completions", s.handleConfidential)
	s.mux.HandleFunc("POST /v1/chat/completions", s.handleChat)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(s.apiKey)) == 1
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	model := r.PathValue("model")
	s.log.Debug("node lookup", "model", model, "node_key", crypto.Fingerprint(s.node.PublicKey()))
	writeJSON(w, http.StatusOK, domain.NodeInfo{
		PublicKey:    s.node.PublicKey(),
		StackSmallID: s.stackID,
	})
}

func (s *Server) handleConfidential(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var env domain.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, "envelope is not JSON")
		return
	}
	if env.StackSmallID != s.stackID {
		writeError(w, http.StatusNotFound, "unknown stack")
		return
	}

	plaintext, secret, err := s.node.OpenRequest(env)
	if err != nil {
		s.log.Warn("rejected envelope", "err", err)
		switch {
		case errors.Is(err, domain.ErrInvalidEnvelope):
			writeError(w, http.StatusBadRequest, "invalid envelope")
		default:
			writeError(w, http.StatusUnprocessableEntity, "envelope failed authentication")
		}
		return
	}
	defer crypto.Wipe(secret.Slice())
	defer crypto.Wipe(plaintext)

	var req domain.ChatRequest
	if err := json.Unmarshal(plaintext, &req); err != nil {
		writeError(w, http.StatusBadRequest, "request is not a chat completion")
		return
	}
	body, err := json.Marshal(Echo(req))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode completion")
		return
	}
	resp, err := s.node.SealResponse(secret, body)
	if err != nil {
		s.log.Error("seal response", "err", err)
		writeError(w, http.StatusInternalServerError, "seal response")
		return
	}
	s.log.Debug("answered confidential request", "model", env.ModelName, "client_key", fingerprintOf(env.ClientDHPublicKey))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req domain.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request is not a chat completion")
		return
	}
	writeJSON(w, http.StatusOK, Echo(req))
}

// Echo answers req by repeating the last user message.
func Echo(req domain.ChatRequest) domain.ChatResponse {
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = req.Messages[i].Content
			break
		}
	}
	return domain.ChatResponse{
		Model: req.Model,
		Choices: []domain.Choice{{
			Message:      domain.Message{Role: "assistant", Content: "echo: " + last},
			FinishReason: "stop",
		}},
	}
}

func fingerprintOf(b64 string) domain.Fingerprint {
	b, err := crypto.FromB64(b64)
	if err != nil {
		return ""
	}
	return crypto.Fingerprint(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
