package types

// SessionID identifies a browser/client session on the application server.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }

// CorrelationID identifies one confidential request/response exchange.
type CorrelationID string

// String returns the string form of the correlation identifier.
func (id CorrelationID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys used in logs.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// RecordKey addresses a single pending key record. A session may hold
// several records at once, one per in-flight exchange.
type RecordKey struct {
	Session     SessionID     `json:"session"`
	Correlation CorrelationID `json:"correlation"`
}

// String returns "session/correlation".
func (k RecordKey) String() string {
	return string(k.Session) + "/" + string(k.Correlation)
}
