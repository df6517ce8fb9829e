package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	s, err := NewSealer("k1")
	require.NoError(t, err)

	sealed, err := s.Seal("123-45-6789")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "6789")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "123-45-6789", plain)

	again, err := s.Seal("123-45-6789")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestOpenRejectsForeignKey(t *testing.T) {
	a, _ := NewSealer("k1")
	b, _ := NewSealer("k2")
	sealed, err := a.Seal("123-45-6789")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = a.Open("not-base64!!")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestIndexDeterministicPerSecret(t *testing.T) {
	a, _ := NewSealer("k1")
	b, _ := NewSealer("k2")
	assert.Equal(t, a.Index("123-45-6789"), a.Index("123-45-6789"))
	assert.NotEqual(t, a.Index("123-45-6789"), a.Index("123-45-6780"))
	assert.NotEqual(t, a.Index("123-45-6789"), b.Index("123-45-6789"))
}

func TestNewSealerEmptySecret(t *testing.T) {
	_, err := NewSealer("")
	assert.Error(t, err)
}

func TestMaskSSN(t *testing.T) {
	assert.Equal(t, "XXX-XX-6789", MaskSSN("123-45-6789"))
	assert.Equal(t, "XXX-XX-XXXX", MaskSSN("12"))
}
