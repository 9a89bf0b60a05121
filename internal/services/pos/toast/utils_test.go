package toast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyHMAC(t *testing.T) {
	key := []byte("secret")
	body := []byte(`{"guid":"txn1"}`)

	sig := Hmac256(body, key)

	assert.True(t, VerifyHMAC(key, body, sig))
	assert.False(t, VerifyHMAC(key, body, "deadbeef"))
	assert.False(t, VerifyHMAC([]byte("other"), body, sig))
	assert.False(t, VerifyHMAC(key, []byte("tampered"), sig))
}

func TestRandomNumber(t *testing.T) {
	n, err := randomNumber()

	require.NoError(t, err)
	assert.Len(t, n, 18)
}
