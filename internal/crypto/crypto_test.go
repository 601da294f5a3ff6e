package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"confidant/internal/crypto"
	"confidant/internal/domain"
)

func suites() map[string]domain.KeyAgreement {
	return map[string]domain.KeyAgreement{
		"x25519": crypto.NewX25519(),
		"p256":   crypto.NewP256(),
	}
}

func codecs() map[string]domain.AEAD {
	return map[string]domain.AEAD{
		"aes-gcm":  crypto.NewAESGCM(),
		"chacha20": crypto.NewChaCha20Poly1305(),
	}
}

func TestDeriveSharedSecret_Commutative(t *testing.T) {
	for name, ka := range suites() {
		t.Run(name, func(t *testing.T) {
			a, err := ka.GenerateKeyPair()
			require.NoError(t, err)
			b, err := ka.GenerateKeyPair()
			require.NoError(t, err)
			require.Len(t, a.Public, ka.PublicKeySize())

			ab, err := ka.DeriveSharedSecret(a.Private, b.Public)
			require.NoError(t, err)
			ba, err := ka.DeriveSharedSecret(b.Private, a.Public)
			require.NoError(t, err)
			require.Equal(t, ab, ba)
			require.NotEqual(t, domain.SharedSecret{}, ab)
		})
	}
}

func TestX25519_ClampedAndFresh(t *testing.T) {
	ka := crypto.NewX25519()
	a, err := ka.GenerateKeyPair()
	require.NoError(t, err)
	b, err := ka.GenerateKeyPair()
	require.NoError(t, err)

	require.Zero(t, a.Private[0]&7)
	require.Equal(t, byte(64), a.Private[31]&0xC0)
	require.False(t, bytes.Equal(a.Private, b.Private), "keypairs must not repeat")
}

func TestX25519_RejectsLowOrderPoint(t *testing.T) {
	ka := crypto.NewX25519()
	a, err := ka.GenerateKeyPair()
	require.NoError(t, err)

	_, err = ka.DeriveSharedSecret(a.Private, make([]byte, 32))
	require.Error(t, err)
}

func TestX25519_RejectsBadLengths(t *testing.T) {
	ka := crypto.NewX25519()
	a, err := ka.GenerateKeyPair()
	require.NoError(t, err)

	_, err = ka.DeriveSharedSecret(a.Private[:31], a.Public)
	require.Error(t, err)
	_, err = ka.DeriveSharedSecret(a.Private, a.Public[:16])
	require.Error(t, err)
}

func TestAEAD_RoundTripProperty(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				var secret domain.SharedSecret
				copy(secret[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "secret"))
				nonce := rapid.SliceOfN(rapid.Byte(), 12, 12).Draw(rt, "nonce")
				pt := rapid.SliceOf(rapid.Byte()).Draw(rt, "plaintext")

				ct, err := codec.Seal(secret, nonce, pt)
				if err != nil {
					rt.Fatalf("seal: %v", err)
				}
				if len(ct) != len(pt)+codec.Overhead() {
					rt.Fatalf("ciphertext length %d, want %d", len(ct), len(pt)+codec.Overhead())
				}
				got, err := codec.Open(secret, nonce, ct)
				if err != nil {
					rt.Fatalf("open: %v", err)
				}
				if !bytes.Equal(got, pt) {
					rt.Fatalf("round trip mismatch")
				}
			})
		})
	}
}

func TestAEAD_SingleBitTamperDetected(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				var secret domain.SharedSecret
				copy(secret[:], rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(rt, "secret"))
				nonce := rapid.SliceOfN(rapid.Byte(), 12, 12).Draw(rt, "nonce")
				pt := rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(rt, "plaintext")

				ct, err := codec.Seal(secret, nonce, pt)
				if err != nil {
					rt.Fatalf("seal: %v", err)
				}
				bit := rapid.IntRange(0, len(ct)*8-1).Draw(rt, "bit")
				ct[bit/8] ^= 1 << (bit % 8)

				got, err := codec.Open(secret, nonce, ct)
				if !errors.Is(err, domain.ErrIntegrity) {
					rt.Fatalf("want ErrIntegrity, got %v", err)
				}
				if got != nil {
					rt.Fatalf("plaintext returned on failure")
				}
			})
		})
	}
}

func TestAEAD_WrongSecretOrNonce(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			secret := domain.SharedSecret{1, 2, 3}
			nonce := bytes.Repeat([]byte{7}, 12)
			ct, err := codec.Seal(secret, nonce, []byte("heart rate 61bpm"))
			require.NoError(t, err)

			_, err = codec.Open(domain.SharedSecret{9}, nonce, ct)
			require.ErrorIs(t, err, domain.ErrIntegrity)

			_, err = codec.Open(secret, bytes.Repeat([]byte{8}, 12), ct)
			require.ErrorIs(t, err, domain.ErrIntegrity)

			_, err = codec.Open(secret, nonce, ct[:4])
			require.ErrorIs(t, err, domain.ErrIntegrity)
		})
	}
}

func TestAEAD_FreshNoncesGiveDistinctCiphertexts(t *testing.T) {
	for name, codec := range codecs() {
		t.Run(name, func(t *testing.T) {
			secret := domain.SharedSecret{42}
			pt := []byte(`{"messages":[{"role":"user","content":"hi"}]}`)

			n1, err := crypto.RandomBytes(codec.NonceSize())
			require.NoError(t, err)
			n2, err := crypto.RandomBytes(codec.NonceSize())
			require.NoError(t, err)
			require.NotEqual(t, n1, n2)

			c1, err := codec.Seal(secret, n1, pt)
			require.NoError(t, err)
			c2, err := codec.Seal(secret, n2, pt)
			require.NoError(t, err)
			require.NotEqual(t, c1, c2)
		})
	}
}

func TestAEAD_SealRejectsBadNonce(t *testing.T) {
	_, err := crypto.NewAESGCM().Seal(domain.SharedSecret{}, []byte{1, 2, 3}, []byte("x"))
	require.ErrorIs(t, err, domain.ErrEncryption)
}

func TestDigest(t *testing.T) {
	d := crypto.Digest([]byte("abc"))
	require.Len(t, d, crypto.DigestBytes)
	require.True(t, crypto.DigestEqual([]byte("abc"), d))
	require.False(t, crypto.DigestEqual([]byte("abd"), d))
}

func TestFingerprint_Short(t *testing.T) {
	fp := crypto.Fingerprint([]byte("node key"))
	require.Len(t, fp.String(), 20)
}

func TestWipe(t *testing.T) {
	b, err := crypto.RandomBytes(32)
	require.NoError(t, err)
	require.Len(t, b, 32)

	crypto.Wipe(b)
	require.Equal(t, make([]byte, 32), b)
	crypto.Wipe(nil)
}
