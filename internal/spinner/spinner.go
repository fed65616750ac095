// Package spinner provides a terminal spinner with ticker-style status display.
// It shows a spinning indicator alongside the latest output line of a running
// query, updating in place without polluting the terminal buffer.
package spinner

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Spinner displays a spinner with ticker-style status updates. It is a
// query.ProgressSink: every progress message replaces the status line.
type Spinner struct {
	program *tea.Program
	lineCh  chan status
	done    chan struct{}
	once    sync.Once
	output  io.Writer
	ready   chan struct{}
}

type status struct {
	pct     float64
	text    string
	isError bool
}

// New creates a new Spinner that writes to the given output (typically os.Stderr).
// If output is nil, os.Stderr is used.
func New(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}

	return &Spinner{
		lineCh: make(chan status, 100), // Buffer to avoid blocking the output drain
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
		output: output,
	}
}

// Enabled reports whether f is a terminal a spinner can draw on.
func Enabled(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Progress implements query.ProgressSink. Updates are dropped while the
// display is behind.
func (s *Spinner) Progress(pct float64, msg string, isError bool) {
	select {
	case <-s.done:
	case s.lineCh <- status{pct: pct, text: msg, isError: isError}:
	default:
	}
}

// Start begins the spinner display. This blocks until Stop() is called.
// Call this in a goroutine if you need to do work while the spinner runs.
func (s *Spinner) Start() error {
	width := 80 // default
	if fd := int(os.Stderr.Fd()); term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}

	m := newModel(s.lineCh, s.done, width)

	s.program = tea.NewProgram(m,
		tea.WithOutput(s.output),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(), // Let parent handle signals
	)
	close(s.ready)

	_, err := s.program.Run()
	return err
}

// Stop stops the spinner and clears its line from the terminal.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		select {
		case <-s.ready:
			s.program.Quit()
		default:
		}
	})
}

// model is the bubbletea model for the spinner.
type model struct {
	spinner  spinner.Model
	status   status
	width    int
	lineCh   <-chan status
	done     <-chan struct{}
	quitting bool
}

// statusMsg is sent when a new progress update arrives.
type statusMsg status

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

// newModel creates a new spinner model.
func newModel(lineCh <-chan status, done <-chan struct{}, width int) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner: s,
		width:   width,
		lineCh:  lineCh,
		done:    done,
	}
}

// Init implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForStatus(m.lineCh, m.done),
	)
}

// Update implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case statusMsg:
		m.status = status(msg)
		return m, waitForStatus(m.lineCh, m.done)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.QuitMsg:
		m.quitting = true
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
//
//nolint:gocritic // hugeParam: tea.Model interface requires value receiver
func (m model) View() string {
	if m.quitting {
		return "" // Clear the line on exit
	}

	prefix := fmt.Sprintf("%3.0f%% ", m.status.pct)

	// Spinner is typically 2 chars + 1 space
	maxLineWidth := m.width - 3 - len(prefix)
	if maxLineWidth < 10 {
		maxLineWidth = 10
	}

	line := truncate(m.status.text, maxLineWidth)
	if m.status.isError {
		line = errorStyle.Render(line)
	}
	return m.spinner.View() + " " + prefix + line
}

// waitForStatus returns a command that waits for the next progress update.
func waitForStatus(lineCh <-chan status, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case st := <-lineCh:
			return statusMsg(st)
		case <-done:
			return tea.Quit()
		}
	}
}

// truncate shortens a string to fit within maxWidth.
// If truncated, it adds "..." at the end.
func truncate(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return ""
	}
	if len(s) <= maxWidth {
		return s
	}
	return s[:maxWidth-3] + "..."
}
