package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homiodev/homio-hquery/internal/catalog"
	catalogmocks "github.com/homiodev/homio-hquery/internal/catalog/mocks"
	"github.com/homiodev/homio-hquery/internal/keychain"
	keychainmocks "github.com/homiodev/homio-hquery/internal/keychain/mocks"
)

func newEditorMock(queries ...catalog.Query) *catalogmocks.EditorMock {
	return &catalogmocks.EditorMock{
		PathFunc: func() string { return "/home/pi/.config/hquery/queries.yaml" },
		QueriesFunc: func(context.Context) ([]catalog.Query, error) {
			return queries, nil
		},
		AddFunc:    func(context.Context, catalog.Query) error { return nil },
		RemoveFunc: func(context.Context, string) error { return nil },
	}
}

func TestShowQueries(t *testing.T) {
	ed := newEditorMock(
		catalog.Query{Name: "disk-free", Unix: catalog.Strings{"df -h /"}, Returns: "lines"},
		catalog.Query{Name: "uptime", Unix: catalog.Strings{"uptime -p"}},
	)

	t.Run("all", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showQueries(context.Background(), &buf, ed, ""))
		assert.Contains(t, buf.String(), "name: disk-free")
		assert.Contains(t, buf.String(), "name: uptime")
	})

	t.Run("by name", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showQueries(context.Background(), &buf, ed, "uptime"))
		assert.Contains(t, buf.String(), "name: uptime")
		assert.NotContains(t, buf.String(), "disk-free")
	})

	t.Run("unknown name", func(t *testing.T) {
		err := showQueries(context.Background(), &bytes.Buffer{}, ed, "nope")
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})

	assert.Len(t, ed.QueriesCalls(), 3)
}

func TestAddQuery(t *testing.T) {
	ed := newEditorMock()
	q := catalog.Query{Name: "outer-ip", URL: "https://api.ipify.org"}

	var buf bytes.Buffer
	require.NoError(t, addQuery(context.Background(), &buf, ed, q))
	assert.Equal(t, "Added outer-ip to /home/pi/.config/hquery/queries.yaml\n", buf.String())
	require.Len(t, ed.AddCalls(), 1)
	assert.Equal(t, q, ed.AddCalls()[0].Q)

	ed.AddFunc = func(context.Context, catalog.Query) error { return catalog.ErrDuplicate }
	err := addQuery(context.Background(), &bytes.Buffer{}, ed, q)
	assert.ErrorIs(t, err, catalog.ErrDuplicate)
}

func TestRemoveQuery(t *testing.T) {
	ed := newEditorMock()

	var buf bytes.Buffer
	require.NoError(t, removeQuery(context.Background(), &buf, ed, "uptime"))
	assert.Equal(t, "Removed uptime from /home/pi/.config/hquery/queries.yaml\n", buf.String())
	require.Len(t, ed.RemoveCalls(), 1)
	assert.Equal(t, "uptime", ed.RemoveCalls()[0].Name)

	ed.RemoveFunc = func(context.Context, string) error { return catalog.ErrNotFound }
	err := removeQuery(context.Background(), &bytes.Buffer{}, ed, "uptime")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSecretStatus(t *testing.T) {
	kc := &keychainmocks.KeychainMock{
		GetFunc: func(name string) (string, error) {
			switch name {
			case "wifi-password":
				return "hunter2", nil
			case "broken":
				return "", errors.New("keyring locked")
			default:
				return "", keychain.ErrNotFound
			}
		},
	}

	var buf bytes.Buffer
	require.NoError(t, secretStatus(&buf, kc, "wifi-password"))
	require.NoError(t, secretStatus(&buf, kc, "api-token"))
	assert.Equal(t, "wifi-password: set\napi-token: not set\n", buf.String())
	assert.NotContains(t, buf.String(), "hunter2")

	err := secretStatus(&buf, kc, "broken")
	assert.ErrorContains(t, err, "keyring locked")
	assert.Len(t, kc.GetCalls(), 3)
}
