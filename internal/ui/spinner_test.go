package ui

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	withoutColor(t)

	var out syncBuffer
	s := newSpinner(&out, "Waiting for replies...")
	s.Start()
	s.Stop()
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "⠋ Waiting for replies...") {
		t.Errorf("first frame not drawn: %q", got)
	}
	if !strings.HasSuffix(got, "\r") {
		t.Errorf("line not cleared: %q", got)
	}
}

func TestSpinnerWithoutTerminal(t *testing.T) {
	s := newSpinner(nil, "quiet")
	s.Start()
	s.Stop()
}
