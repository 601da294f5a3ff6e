package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"confidant/internal/crypto"
	"confidant/internal/store"
)

func TestLoadOrCreateKeyPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.key")
	ka := crypto.NewX25519()

	kp, created, err := store.LoadOrCreateKeyPair(path, ka)
	require.NoError(t, err)
	require.True(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, created, err := store.LoadOrCreateKeyPair(path, ka)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, kp.Public, again.Public)
	require.Equal(t, kp.Private, again.Private)

	_, _, err = store.LoadOrCreateKeyPair(path, crypto.NewP256())
	require.Error(t, err, "suite mismatch must be rejected")
}
