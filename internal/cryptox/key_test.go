package cryptox

import (
	"testing"

	"github.com/dmitrijs2005/shlink/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	require.Len(t, key, KeySize)

	s := EncodeKey(key)
	assert.Len(t, s, 43)

	back, err := DecodeKey(s)
	require.NoError(t, err)
	assert.Equal(t, key, back)

	// padded form is accepted too
	back, err = DecodeKey(s + "=")
	require.NoError(t, err)
	assert.Equal(t, key, back)
}

func TestDecodeKey_Invalid(t *testing.T) {
	_, err := DecodeKey("***")
	assert.ErrorIs(t, err, common.ErrFormat)

	_, err = DecodeKey(EncodeKey([]byte("too short")))
	assert.ErrorIs(t, err, common.ErrFormat)
}
