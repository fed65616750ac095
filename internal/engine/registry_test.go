package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homiodev/homio-hquery/internal/exec/exectest"
	"github.com/homiodev/homio-hquery/internal/query"
)

func TestRegistry_Register(t *testing.T) {
	fake := exectest.New(map[string]exectest.Script{
		"uname -m": {Stdout: []string{"aarch64"}},
	})
	reg := NewRegistry(newTestEngine(t, fake))

	op, err := reg.Register(query.Descriptor{Name: "arch", Commands: unix("uname -m")})
	require.NoError(t, err)

	v, err := op(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "aarch64", v)

	d, ok := reg.Get("arch")
	require.True(t, ok)
	assert.Equal(t, query.ReturnString, d.Returns)

	t.Run("duplicate", func(t *testing.T) {
		_, err := reg.Register(query.Descriptor{Name: "arch", Commands: unix("arch")})
		assert.ErrorIs(t, err, query.ErrInvalidDescriptor)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := reg.Register(query.Descriptor{Name: "empty"})
		assert.ErrorIs(t, err, query.ErrInvalidDescriptor)
		_, ok := reg.Get("empty")
		assert.False(t, ok)
	})

	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Call(t *testing.T) {
	fake := exectest.New(map[string]exectest.Script{
		"cat /etc/hostname": {Stdout: []string{"pi"}},
	})
	reg := NewRegistry(newTestEngine(t, fake))
	_, err := reg.Register(query.Descriptor{Name: "hostname", Commands: unix("cat /etc/hostname")})
	require.NoError(t, err)

	v, err := reg.Call(context.Background(), "hostname")
	require.NoError(t, err)
	assert.Equal(t, "pi", v)

	_, err = reg.Call(context.Background(), "missing")
	require.ErrorIs(t, err, query.ErrUnknownQuery)
	assert.Equal(t, "unknown_query", query.KindName(err))

	op, ok := reg.Operation("hostname")
	require.True(t, ok)
	v, err = op(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "pi", v)

	_, ok = reg.Operation("missing")
	assert.False(t, ok)
}

func TestRegistry_Replace(t *testing.T) {
	reg := NewRegistry(newTestEngine(t, exectest.New(nil)))
	_, err := reg.Register(query.Descriptor{Name: "old", Commands: unix("true")})
	require.NoError(t, err)

	t.Run("invalid set keeps registry", func(t *testing.T) {
		err := reg.Replace([]query.Descriptor{
			{Name: "a", Commands: unix("true")},
			{Name: "a", Commands: unix("false")},
		})
		require.ErrorIs(t, err, query.ErrInvalidDescriptor)
		_, ok := reg.Get("old")
		assert.True(t, ok)
	})

	t.Run("swaps the whole set", func(t *testing.T) {
		err := reg.Replace([]query.Descriptor{
			{Name: "zeta", Commands: unix("true")},
			{Name: "alpha", Commands: unix("true")},
		})
		require.NoError(t, err)

		names := make([]string, 0, reg.Len())
		for _, d := range reg.Descriptors() {
			names = append(names, d.Name)
		}
		assert.Equal(t, []string{"alpha", "zeta"}, names)
	})
}
