package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// SimpleSpinner provides a blocking spinner for operations that run before
// the full-screen room view starts (connecting, fetching session info).
type SimpleSpinner struct {
	message  string
	spinner  spinner.Spinner
	interval time.Duration
	done     chan struct{}
	stopped  bool
}

// NewConnectionSpinner creates a spinner for network operations.
func NewConnectionSpinner(message string) *SimpleSpinner {
	return &SimpleSpinner{
		message:  message,
		spinner:  spinner.Globe,
		interval: 180 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

func (s *SimpleSpinner) Start() {
	go func() {
		frames := s.spinner.Frames
		i := 0
		for {
			select {
			case <-s.done:
				return
			default:
				frame := SpinnerStyle.Render(frames[i%len(frames)])
				fmt.Printf("\r%s %s", frame, s.message)
				i++
				time.Sleep(s.interval)
			}
		}
	}()
}

func (s *SimpleSpinner) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	fmt.Printf("\r%s\r", strings.Repeat(" ", len(s.message)+4))
}

// RunSpinner starts a connection spinner and returns a stop function that is
// safe to call more than once.
func RunSpinner(message string) func() {
	s := NewConnectionSpinner(message)
	s.Start()
	return s.Stop
}
