// Package crypto exposes the primitives behind confidential chat requests.
//
// Contents
//
//   - Key agreement suites implementing domain.KeyAgreement (X25519, P256)
//   - AEAD codecs implementing domain.AEAD (AESGCM, ChaCha20Poly1305)
//   - CSPRNG reads for nonces and salts (RandomBytes)
//   - SHA-256 plaintext digests (Digest, DigestEqual)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for logging (Fingerprint)
//
// # Notes
//
// Every derived secret is 32 bytes regardless of curve. AEAD Open returns
// domain.ErrIntegrity for every authentication failure and never returns
// partial plaintext. Seal failures are wrapped in domain.ErrEncryption with
// the primitive's own error text dropped.
package crypto
