package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"confidant/internal/domain"
	"confidant/internal/protocol/envelope"
)

// Defaults for the completion request.
const (
	DefaultModel       = "meta-llama/Llama-3.3-70B-Instruct"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

var (
	// ErrConfidential is what callers see when a confidential turn fails.
	ErrConfidential = errors.New("failed to decrypt response")

	// ErrNoChoices means the endpoint answered without a completion.
	ErrNoChoices = errors.New("completion has no choices")

	// ErrBadMessages means the conversation cannot be sent as is.
	ErrBadMessages = errors.New("invalid messages")
)

// Options tune the completion request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	return o
}

// Service implements domain.ChatService.
type Service struct {
	client domain.InferenceClient
	sealer *envelope.Sealer
	opts   Options
	log    *slog.Logger
}

// New constructs a chat Service.
func New(
	client domain.InferenceClient,
	sealer *envelope.Sealer,
	opts Options,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{client: client, sealer: sealer, opts: opts.withDefaults(), log: log}
}

var _ domain.ChatService = (*Service)(nil)

// WithKeys returns a copy of s that records keys in keys.
func (s *Service) WithKeys(keys domain.SessionKeyStore) *Service {
	c := *s
	c.sealer = s.sealer.WithStore(keys)
	return &c
}

// Options returns the effective request options.
func (s *Service) Options() Options { return s.opts }

// Send runs a plaintext turn.
func (s *Service) Send(ctx context.Context, messages []domain.Message) (domain.Message, error) {
	req, err := s.request(messages)
	if err != nil {
		return domain.Message{}, err
	}
	resp, err := s.client.Chat(ctx, req)
	if err != nil {
		return domain.Message{}, fmt.Errorf("chat: %w", err)
	}
	return reply(resp)
}

// SendConfidential runs a turn through a sealed envelope bound to session.
func (s *Service) SendConfidential(
	ctx context.Context,
	session domain.SessionID,
	messages []domain.Message,
) (domain.Message, error) {
	req, err := s.request(messages)
	if err != nil {
		return domain.Message{}, err
	}

	node, err := s.client.NodeForModel(ctx, s.opts.Model)
	if err != nil {
		return domain.Message{}, s.fail(session, "node lookup", err)
	}

	turn := envelope.NewTurn(s.sealer)
	env, err := turn.Seal(ctx, session, req, node.PublicKey, node.StackSmallID, s.opts.Model)
	if err != nil {
		return domain.Message{}, s.fail(session, "seal", err)
	}
	if err := turn.Sent(); err != nil {
		turn.Fail(ctx, err)
		return domain.Message{}, s.fail(session, "send", err)
	}

	sealed, err := s.client.ConfidentialChat(ctx, env)
	if err != nil {
		turn.Fail(ctx, err)
		return domain.Message{}, s.fail(session, "send", err)
	}

	var resp domain.ChatResponse
	if err := turn.Open(ctx, sealed, &resp); err != nil {
		return domain.Message{}, s.fail(session, "open", err)
	}
	msg, err := reply(resp)
	if err != nil {
		return domain.Message{}, s.fail(session, "open", err)
	}
	return msg, nil
}

func (s *Service) request(messages []domain.Message) (domain.ChatRequest, error) {
	if len(messages) == 0 {
		return domain.ChatRequest{}, fmt.Errorf("%w: empty conversation", ErrBadMessages)
	}
	out := make([]domain.Message, len(messages))
	for i, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			return domain.ChatRequest{}, fmt.Errorf("%w: message %d has role %q", ErrBadMessages, i, m.Role)
		}
		out[i] = domain.Message{Role: m.Role, Content: m.Content}
	}
	return domain.ChatRequest{
		Messages:    out,
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
		Stream:      false,
	}, nil
}

// fail logs the real cause and returns the generic error. Key generation
// failures stay distinguishable so callers can treat them as fatal.
func (s *Service) fail(session domain.SessionID, stage string, err error) error {
	s.log.Error("confidential chat failed", "session", session.String(), "stage", stage, "err", err)
	if errors.Is(err, domain.ErrKeyGeneration) {
		return fmt.Errorf("%w: %w", ErrConfidential, domain.ErrKeyGeneration)
	}
	return ErrConfidential
}

func reply(resp domain.ChatResponse) (domain.Message, error) {
	if len(resp.Choices) == 0 {
		return domain.Message{}, ErrNoChoices
	}
	return domain.Message{Role: "assistant", Content: resp.Choices[0].Message.Content}, nil
}
