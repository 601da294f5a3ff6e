package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"confidant/internal/domain"
)

// DefaultTimeout bounds a single call when the caller's context has none.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// StatusError is a non-2xx reply from the endpoint.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inference %s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// HTTP is the inference endpoint client.
type HTTP struct {
	Base   string
	APIKey string
	HTTP   *http.Client
}

// NewHTTP returns a client for base authenticating with apiKey.
func NewHTTP(base, apiKey string) *HTTP {
	return &HTTP{
		Base:   strings.TrimRight(base, "/"),
		APIKey: apiKey,
		HTTP:   &http.Client{Timeout: DefaultTimeout},
	}
}

var _ domain.InferenceClient = (*HTTP)(nil)

// NodeForModel looks up the node serving model.
func (c *HTTP) NodeForModel(ctx context.Context, model string) (domain.NodeInfo, error) {
	var out domain.NodeInfo
	if err := c.do(ctx, http.MethodGet, "/v1/nodes/models/"+url.PathEscape(model), nil, &out); err != nil {
		return domain.NodeInfo{}, err
	}
	if len(out.PublicKey) == 0 {
		return domain.NodeInfo{}, fmt.Errorf("inference: no node public key for model %q", model)
	}
	return out, nil
}

// ConfidentialChat sends a sealed request and returns the sealed reply.
func (c *HTTP) ConfidentialChat(ctx context.Context, env domain.Envelope) (domain.ResponseEnvelope, error) {
	var out domain.ResponseEnvelope
	if err := c.do(ctx, http.MethodPost, "/v1/confidential/chat/completions", env, &out); err != nil {
		return domain.ResponseEnvelope{}, err
	}
	return out, nil
}

// Chat sends a plaintext completion request.
func (c *HTTP) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	var out domain.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/completions", req, &out); err != nil {
		return domain.ChatResponse{}, err
	}
	return out, nil
}

func (c *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("inference %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inference %s %s: decode: %w", method, path, err)
	}
	return nil
}
