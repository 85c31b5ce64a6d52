package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	blob, err := seal([]byte(`[{"name":"session","value":"abc123"}]`))
	require.NoError(t, err)
	assert.NotContains(t, blob, "abc123", "ciphertext must not leak cookie values")

	plaintext, err := open(blob)
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"session","value":"abc123"}]`, string(plaintext))
}

func TestOpen_RejectsTamperedBlob(t *testing.T) {
	blob, err := seal([]byte("payload"))
	require.NoError(t, err)

	// Flip the last hex digit.
	tampered := blob[:len(blob)-1]
	if blob[len(blob)-1] == 'a' {
		tampered += "b"
	} else {
		tampered += "a"
	}

	_, err = open(tampered)
	assert.Error(t, err)
}

func TestOpen_RejectsGarbage(t *testing.T) {
	_, err := open("not hex at all")
	assert.Error(t, err)

	_, err = open("abcd")
	assert.Error(t, err, "shorter than a nonce")
}
