package types

// SharedSecretSize is the fixed length of every derived secret.
const SharedSecretSize = 32

// SharedSecret is the output of a Diffie-Hellman agreement. It only lives
// for the duration of one encrypt or decrypt call.
type SharedSecret [SharedSecretSize]byte

// Slice returns the secret as a []byte.
func (s *SharedSecret) Slice() []byte { return s[:] }

// KeyPair is an ephemeral asymmetric keypair. Private and Public hold the
// raw encodings of the suite that produced them.
type KeyPair struct {
	Private []byte
	Public  []byte
}
