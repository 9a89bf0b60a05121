package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// qrTokenBytes gives 128 bits of entropy, the minimum for an unguessable
// ticket token.
const qrTokenBytes = 16

// NewQRToken returns an opaque ticket token from a cryptographically secure
// source. It is never derived from the ticket or owner id.
func NewQRToken() (string, error) {
	return GenerateCode(qrTokenBytes)
}

// GenerateCode returns n random bytes hex-encoded (2n characters).
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return hex.EncodeToString(byt), nil
}
