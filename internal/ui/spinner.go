package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Spinner animates a waiting message on stderr while a command collects
// replies. Nothing is drawn when stderr is not a terminal.
type Spinner struct {
	out     io.Writer
	message string

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner for message. Call Start and then Stop.
func NewSpinner(message string) *Spinner {
	var out io.Writer
	if IsTerminal(os.Stderr) {
		out = os.Stderr
	}
	return newSpinner(out, message)
}

func newSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start draws frames until Stop is called. A spinner runs at most once.
func (s *Spinner) Start() {
	if s.out == nil {
		close(s.done)
		return
	}
	go s.run()
}

// Stop clears the line and waits for the animation to end. It is safe to
// call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Spinner) run() {
	defer close(s.done)

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	started := time.Now()

	width := 0
	for frame := 0; ; frame++ {
		line := fmt.Sprintf("%s %s", Color(Cyan, string(spinnerFrames[frame%len(spinnerFrames)])), s.message)
		if elapsed := time.Since(started); elapsed > 2*time.Second {
			line += fmt.Sprintf(" (%ds)", int(elapsed.Seconds()))
		}
		if n := visibleLength(line); n > width {
			width = n
		}
		fmt.Fprint(s.out, "\r"+line)

		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r"+strings.Repeat(" ", width)+"\r")
			return
		case <-ticker.C:
		}
	}
}
