// Package utils holds small helpers shared across layers.
package utils

import "github.com/google/uuid"

// GenerateID returns a random UUIDv4 string. Every persisted row and JWT
// jti gets its identifier from here.
func GenerateID() string {
	return uuid.NewString()
}

// IsValidUUID reports whether s parses as a UUID. Handlers use it to reject
// malformed path identifiers before touching the database.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
