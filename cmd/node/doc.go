// Command node runs the in-memory development inference node used by
// confidant during development and tests. It serves the model directory and
// the chat completion routes described in package devnode, answering every
// request with an echo completion.
//
// Behaviour
//
//   - The node keypair is loaded from --key, or generated and saved there
//     (0600) on first start, so the published public key survives restarts.
//   - All other state is held in memory and lost on process exit.
//   - A lightweight access log records method, path, remote, status, bytes and
//     duration for each request.
//   - The default listen address is :8080.
//
// The node is intended for local use. It sees plaintext by construction, as
// any inference node does; intermediaries between it and the application
// server only see sealed envelopes.
package main
