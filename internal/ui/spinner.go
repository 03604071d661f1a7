package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

// Spinner is a single line progress indicator. When animated it redraws the line
// on a ticker; otherwise it writes the last text once when stopped.
type Spinner struct {
	out      io.Writer
	animate  bool
	interval time.Duration

	mu      sync.Mutex
	text    string
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner returns a stopped spinner showing text.
func NewSpinner(out io.Writer, text string, animate bool) *Spinner {
	return &Spinner{
		out:      out,
		animate:  animate,
		interval: 100 * time.Millisecond,
		text:     text,
	}
}

// Start begins drawing. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	if !s.animate {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
}

func (s *Spinner) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		s.mu.Lock()
		fmt.Fprintf(s.out, "\r\033[K%s %s", spinnerStyle.Render(spinnerFrames[i%len(spinnerFrames)]), s.text)
		s.mu.Unlock()
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// SetText replaces the text shown next to the spinner.
func (s *Spinner) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

// Text returns the current text.
func (s *Spinner) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Stop halts drawing and waits for the drawing goroutine to exit. Stopping a
// stopped spinner does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	if !s.animate {
		fmt.Fprintln(s.out, s.Text())
		return
	}
	close(stop)
	<-done
	fmt.Fprint(s.out, "\r\033[K")
}
