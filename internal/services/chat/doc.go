// Package chat runs one assistant turn against the inference endpoint,
// either in the clear or through a sealed envelope.
//
// A confidential turn looks up the node serving the configured model, seals
// the completion request to that node's public key, posts it, and opens the
// reply with the keys recorded at seal time. Callers only ever see
// ErrConfidential for a failed confidential turn; the distinct cause is
// logged.
package chat
