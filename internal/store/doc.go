// Package store provides persistence for pending confidential-exchange keys.
//
// A pending record holds the ephemeral keypair and the remote node's public
// key between sealing a request and opening its response. Records are keyed
// by session and per-request correlation id, so a session may have several
// exchanges in flight. Every store expires records after a TTL.
//
// The package includes:
//   - MemoryKeyStore, an in-process map with inline and periodic eviction
//   - BadgerKeyStore, a Badger database using entry TTLs
//   - CookieKeyStore, an encrypted http-only cookie bound to one HTTP exchange
//   - SaveKeyPair / LoadKeyPair for long-lived node keys on disk
package store
