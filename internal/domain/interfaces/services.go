package interfaces

import (
	"context"

	domaintypes "confidant/internal/domain/types"
)

// InferenceClient talks to the remote inference endpoint.
type InferenceClient interface {
	NodeForModel(ctx context.Context, model string) (domaintypes.NodeInfo, error)
	ConfidentialChat(
		ctx context.Context,
		envelope domaintypes.Envelope,
	) (domaintypes.ResponseEnvelope, error)
	Chat(ctx context.Context, req domaintypes.ChatRequest) (domaintypes.ChatResponse, error)
}

// ChatService runs one assistant turn, optionally through the
// confidential envelope.
type ChatService interface {
	Send(ctx context.Context, messages []domaintypes.Message) (domaintypes.Message, error)
	SendConfidential(
		ctx context.Context,
		session domaintypes.SessionID,
		messages []domaintypes.Message,
	) (domaintypes.Message, error)
}
