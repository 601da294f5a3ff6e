// Package devnode is an in-memory stand-in for the remote inference node,
// used during development and in tests. It holds one node keypair and
// answers every model with an echo completion.
//
// HTTP API
//
//	GET /v1/nodes/models/{model}
//	    Return {publicKey, stackSmallId} for the node. publicKey is encoded
//	    as an array of byte values.
//
//	POST /v1/confidential/chat/completions
//	    Open the envelope with the node private key, verify the body hash,
//	    and return the echo completion sealed under the same shared secret.
//
//	POST /v1/chat/completions
//	    Return the echo completion in the clear.
//
// Behaviour
//
//   - When an API key is configured, requests without the matching bearer
//     token get 401.
//   - Malformed envelopes get 400; envelopes that fail authentication get
//     422. The node never logs plaintext.
package devnode
