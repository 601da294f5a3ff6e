package crypto

import (
	"crypto/rand"
	"fmt"
	"runtime"
)

// RandomBytes returns n bytes from the operating system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// Wipe overwrites key material once a call no longer needs it. The Go
// runtime may already have copied the bytes elsewhere, so this narrows the
// window rather than closing it.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
