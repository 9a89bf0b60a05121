package square

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

func hmac256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// VerifySignature checks the x-square-hmacsha256-signature header of a
// webhook delivery against the subscription's signature key.
func (s *square) VerifySignature(signature string, body []byte) bool {
	expected := base64.StdEncoding.EncodeToString(hmac256([]byte(s.webhookSecret), body))
	return hmac.Equal([]byte(signature), []byte(expected))
}
