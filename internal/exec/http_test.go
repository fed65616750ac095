package exec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ip":
			_, _ = w.Write([]byte("203.0.113.7\n"))
		case "/slow":
			time.Sleep(500 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.Client())

	t.Run("returns body", func(t *testing.T) {
		body, err := client.Get(context.Background(), server.URL+"/ip", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.7\n", string(body))
	})

	t.Run("status error", func(t *testing.T) {
		_, err := client.Get(context.Background(), server.URL+"/missing", time.Second)
		assert.ErrorIs(t, err, ErrHTTPStatus)
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := client.Get(context.Background(), server.URL+"/slow", 50*time.Millisecond)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := client.Get(context.Background(), "://bad", time.Second)
		assert.Error(t, err)
	})
}
