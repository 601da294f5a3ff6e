package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Envelope is the confidential request as sent to the inference node.
// Binary fields are standard base64.
type Envelope struct {
	Ciphertext        string `json:"ciphertext"`
	ClientDHPublicKey string `json:"clientDhPublicKey"`
	NodeDHPublicKey   string `json:"nodeDhPublicKey"`
	Nonce             string `json:"nonce"`
	Salt              string `json:"salt"`
	PlaintextBodyHash string `json:"plaintextBodyHash"`
	ModelName         string `json:"modelName"`
	StackSmallID      int64  `json:"stackSmallId"`
}

// ResponseEnvelope is the confidential reply from the inference node.
type ResponseEnvelope struct {
	Ciphertext   string `json:"ciphertext"`
	Nonce        string `json:"nonce"`
	ResponseHash string `json:"responseHash,omitempty"`
}

// NodeInfo is the directory entry for the node serving a model.
type NodeInfo struct {
	PublicKey    PublicKeyBytes `json:"publicKey"`
	StackSmallID int64          `json:"stackSmallId"`
}

// PublicKeyBytes decodes either a JSON array of byte values or a base64
// string. It always encodes as an array of numbers.
type PublicKeyBytes []byte

// MarshalJSON encodes the key as a JSON array of numbers.
func (p PublicKeyBytes) MarshalJSON() ([]byte, error) {
	out := make([]int, len(p))
	for i, b := range p {
		out[i] = int(b)
	}
	return json.Marshal(out)
}

// UnmarshalJSON mirrors MarshalJSON and additionally accepts base64.
func (p *PublicKeyBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("public key: %w", err)
		}
		*p = b
		return nil
	}
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return fmt.Errorf("public key: %w", err)
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return fmt.Errorf("public key: byte %d out of range: %d", i, n)
		}
		out[i] = byte(n)
	}
	*p = out
	return nil
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the plaintext body of a chat completion call. Field order
// is the canonical serialization order.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse is the plaintext body of a chat completion reply.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}
