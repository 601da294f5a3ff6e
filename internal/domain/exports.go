package domain

import (
	interfaces "confidant/internal/domain/interfaces"
	types "confidant/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	SessionID        = types.SessionID
	CorrelationID    = types.CorrelationID
	Fingerprint      = types.Fingerprint
	RecordKey        = types.RecordKey
	SharedSecret     = types.SharedSecret
	KeyPair          = types.KeyPair
	SessionKeyRecord = types.SessionKeyRecord
	TurnPhase        = types.TurnPhase
	Envelope         = types.Envelope
	ResponseEnvelope = types.ResponseEnvelope
	NodeInfo         = types.NodeInfo
	PublicKeyBytes   = types.PublicKeyBytes
	Message          = types.Message
	ChatRequest      = types.ChatRequest
	Choice           = types.Choice
	ChatResponse     = types.ChatResponse
)

// Turn phases, re-exported.
const (
	PhaseIdle              = types.PhaseIdle
	PhaseKeysGenerated     = types.PhaseKeysGenerated
	PhaseEncryptedSent     = types.PhaseEncryptedSent
	PhaseAwaitingResponse  = types.PhaseAwaitingResponse
	PhaseDecryptedConsumed = types.PhaseDecryptedConsumed
	PhaseFailed            = types.PhaseFailed
)

// SharedSecretSize is the fixed length of a derived secret.
const SharedSecretSize = types.SharedSecretSize

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyAgreement    = interfaces.KeyAgreement
	AEAD            = interfaces.AEAD
	SessionKeyStore = interfaces.SessionKeyStore
	InferenceClient = interfaces.InferenceClient
	ChatService     = interfaces.ChatService
)
