package cache

import "github.com/google/uuid"

// KeyGenerator produces the key a stored value is written under.
type KeyGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (version 4) UUID keys.
//
// Format: "550e8400-e29b-41d4-a716-446655440000" (36 characters)
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate creates a new random UUID and returns it as a hyphenated string.
//
// Panics if the system random source fails (should never happen in practice).
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewRandom()).String()
}
