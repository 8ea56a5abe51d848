package display

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Spinner is a progress indicator shown while waiting on the model.
// Stop erases the spinner line. Both methods are safe to call repeatedly.
type Spinner struct {
	mu      sync.Mutex
	sp      *spinner.Spinner
	running bool
}

// NewSpinner creates a spinner writing to stderr
func NewSpinner(message string) *Spinner {
	return newSpinner(os.Stderr, message)
}

func newSpinner(w io.Writer, message string) *Spinner {
	sp := spinner.New(spinnerFrames, 100*time.Millisecond, spinner.WithWriter(w))
	sp.Suffix = " " + message
	return &Spinner{sp: sp}
}

// Start shows the spinner with message
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		if message != "" {
			s.setSuffix(message)
		}
		return
	}
	if message != "" {
		s.sp.Suffix = " " + message
	}
	s.sp.Start()
	s.running = true
}

func (s *Spinner) setSuffix(message string) {
	s.sp.Lock()
	s.sp.Suffix = " " + message
	s.sp.Unlock()
}

// Stop hides the spinner and erases its line
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.sp.Stop()
	s.running = false
}
