// Package sessionid generates unique session identifiers.
// Any sufficiently unique random id suffices for the store; the generators
// here are the two common choices.
package sessionid

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// Generator produces a new unique session id.
type Generator func() string

// UUID returns a random (version 4) UUID string.
// It is the store's default generator.
func UUID() string {
	return uuid.NewString()
}

// Random returns 256 bits of entropy encoded as unpadded URL-safe base64,
// for callers who want an opaque id with no recognizable structure.
func Random() string {
	b := make([]byte, 32)
	rand.Read(b) // never fails as of go1.24
	return base64.RawURLEncoding.EncodeToString(b)
}
