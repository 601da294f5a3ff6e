// Package envelope builds and opens confidential chat envelopes.
//
// # Overview
//
// An envelope carries one request body to a remote inference node so that
// only that node can read it. The application server seals the body under a
// secret agreed with the node's published public key and keeps the ephemeral
// keypair until the node's reply arrives.
//
// # Flows
//
// Build (application server):
//  1. Generate an ephemeral keypair.
//  2. Derive the shared secret with the node's public key.
//  3. Serialize the request to canonical JSON.
//  4. SHA-256 the serialized bytes.
//  5. Draw a 12-byte nonce and a 32-byte salt.
//  6. AEAD-encrypt the serialized bytes.
//  7. Store {keypair, node public key} under a fresh correlation id.
//  8. Return the envelope with base64 binary fields.
//
// Open (application server):
//  1. Take the stored record; a missing or expired record is ErrNoKeys.
//  2. Re-derive the secret from the stored private key and the stored node key.
//  3. AEAD-decrypt; failure is ErrIntegrity and nothing is deserialized.
//  4. The record is already gone, whatever the outcome.
//  5. If the reply carries responseHash, it must equal SHA-256 of the plaintext.
//  6. Deserialize the plaintext into the caller's value.
//
// Node.OpenRequest and Node.SealResponse are the node's half of the exchange.
//
// # Key source
//
// Open never uses keys carried by an inbound message. The record written by
// Build is the only source for re-derivation; the clientDhPublicKey and
// nodeDhPublicKey fields of an outbound envelope are informational for the
// application server.
//
// # Salt
//
// The salt is generated and transmitted but no key derivation consumes it.
// Decryption works without it. It is kept on the wire because the node
// protocol expects the field.
package envelope
