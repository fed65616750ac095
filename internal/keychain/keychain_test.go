package keychain

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeychain(t *testing.T) {
	k := Wrap(keyring.NewArrayKeyring(nil), "hquery")

	_, err := k.Get("wifi")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, k.Set("wifi", "hunter2"))
	got, err := k.Get("wifi")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, k.Set("wifi", "changed"))
	got, err = k.Get("wifi")
	require.NoError(t, err)
	assert.Equal(t, "changed", got)

	require.NoError(t, k.Delete("wifi"))
	require.NoError(t, k.Delete("wifi"))
	_, err = k.Get("wifi")
	assert.ErrorIs(t, err, ErrNotFound)
}
