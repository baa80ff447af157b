package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner renders an animated status line in place on stdout until stopped.
type Spinner struct {
	message  string
	frames   []string
	interval time.Duration
	done     chan struct{}
	started  bool
	stopped  bool
}

// NewConnectionSpinner returns a spinner for network operations (Globe style).
func NewConnectionSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		frames:   spinner.Globe.Frames,
		interval: 180 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// NewWaitingSpinner returns a spinner for waiting on another player (Points
// style).
func NewWaitingSpinner(message string) *Spinner {
	return &Spinner{
		message:  message,
		frames:   spinner.Points.Frames,
		interval: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
}

// Start begins the animation. Starting twice or after Stop is a no-op.
func (s *Spinner) Start() {
	if s.started || s.stopped {
		return
	}
	s.started = true
	go func() {
		for i := 0; ; i++ {
			select {
			case <-s.done:
				return
			default:
				frame := SpinnerStyle.Render(s.frames[i%len(s.frames)])
				fmt.Printf("\r%s %s", frame, s.message)
				time.Sleep(s.interval)
			}
		}
	}()
}

// Stop clears the spinner line. Stopping twice is a no-op.
func (s *Spinner) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	fmt.Print("\r\033[K") // Clear the line
}

// Success stops the spinner and prints message as the final status.
func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

// Error stops the spinner and prints message as the final status.
func (s *Spinner) Error(message string) {
	s.Stop()
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), message)
}
