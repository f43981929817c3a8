package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomCode(t *testing.T) {
	code := RandomCode(8)
	assert.Len(t, code, 8)
	for _, c := range code {
		assert.True(t, strings.ContainsRune(codeAlphabet, c), "unexpected character %q", c)
	}

	other := RandomCode(8)
	assert.NotEqual(t, code, other)
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("hunter22")
	assert.NoError(t, err)
	assert.NotEqual(t, "hunter22", hashed)
	assert.True(t, ComparePassword(hashed, "hunter22"))
	assert.False(t, ComparePassword(hashed, "hunter23"))
}
