package spinner

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "", truncate("abc", 3))
}

func TestSpinner_Progress(t *testing.T) {
	s := New(nil)

	s.Progress(50, "Cell 01", false)
	require.Len(t, s.lineCh, 1)

	st := <-s.lineCh
	assert.Equal(t, status{pct: 50, text: "Cell 01"}, st)

	s.Stop()
	s.Stop()
	s.Progress(100, "dropped", false)
	assert.Empty(t, s.lineCh)
}

func TestModel_Update(t *testing.T) {
	lineCh := make(chan status, 1)
	m := newModel(lineCh, make(chan struct{}), 40)

	next, cmd := m.Update(statusMsg{pct: 50, text: "scanning wlan0"})
	require.NotNil(t, cmd)
	view := next.View()
	assert.Contains(t, view, " 50% scanning wlan0")

	next, _ = next.Update(tea.WindowSizeMsg{Width: 20})
	assert.Contains(t, next.View(), "...")

	next, _ = next.Update(tea.QuitMsg{})
	assert.Equal(t, "", next.View())
}
