package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealBoxRoundTrip(t *testing.T) {
	t.Parallel()

	box := NewSealBox([]byte("storage-key"))

	sealed, err := box.Seal(`{"token":"abc","refresh":"def"}`)
	require.NoError(t, err)
	require.NotContains(t, sealed, "abc", "payload must not appear in ciphertext")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, `{"token":"abc","refresh":"def"}`, opened)
}

func TestSealBoxNoncesDiffer(t *testing.T) {
	t.Parallel()

	box := NewSealBox([]byte("storage-key"))

	a, err := box.Seal("same plaintext")
	require.NoError(t, err)
	b, err := box.Seal("same plaintext")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestSealBoxWrongKey(t *testing.T) {
	t.Parallel()

	sealed, err := NewSealBox([]byte("key-one")).Seal("secret")
	require.NoError(t, err)

	_, err = NewSealBox([]byte("key-two")).Open(sealed)
	require.ErrorIs(t, err, ErrSealBoxOpen)
}

func TestSealBoxRejectsMangledInput(t *testing.T) {
	t.Parallel()

	box := NewSealBox([]byte("storage-key"))

	_, err := box.Open("%%% not base64 %%%")
	require.ErrorIs(t, err, ErrSealBoxOpen)

	_, err = box.Open("dG9vc2hvcnQ") // valid base64, shorter than a nonce
	require.ErrorIs(t, err, ErrSealBoxOpen)
}
