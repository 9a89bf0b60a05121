package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQRToken(t *testing.T) {
	token, err := NewQRToken()

	require.NoError(t, err)
	assert.Len(t, token, 32)
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
}

func TestNewQRToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		token, err := NewQRToken()
		require.NoError(t, err)
		require.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(10)

	require.NoError(t, err)
	assert.Len(t, code, 20)
}
