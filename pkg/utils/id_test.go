package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	assert.True(t, IsValidUUID(a))
	assert.True(t, IsValidUUID(b))
	assert.NotEqual(t, a, b)
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("bb3cda2d-3b86-4e4a-9f6d-1a2b3c4d5e6f"))
	assert.False(t, IsValidUUID(""))
	assert.False(t, IsValidUUID("doc-1"))
	assert.False(t, IsValidUUID("../etc/passwd"))
}
