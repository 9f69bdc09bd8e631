package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/edgecli/lanping/internal/discovery"
	"github.com/edgecli/lanping/internal/registry"
	"github.com/edgecli/lanping/internal/transport"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := colorEnabled
	colorEnabled = false
	t.Cleanup(func() { colorEnabled = prev })
}

func TestVisibleLength(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "plain", input: "hello", want: 5},
		{name: "colored", input: Cyan + "hello" + Reset, want: 5},
		{name: "nested codes", input: Bold + Cyan + "ab" + Reset + "c", want: 3},
		{name: "multibyte", input: "→x", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := visibleLength(tt.input); got != tt.want {
				t.Errorf("visibleLength(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderPeerTable(t *testing.T) {
	withoutColor(t)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	peers := []registry.PeerEntry{
		{
			Identity: discovery.Identity{ID: "node-a", Name: "office", Role: "printer"},
			Addr:     transport.Addr{IP: "192.168.1.10", Port: 3024},
			Replies:  2,
			LastSeen: now.Add(-3 * time.Second),
		},
		{
			Identity: discovery.Identity{ID: "node-bb"},
			Addr:     transport.Addr{IP: "192.168.1.11", Port: 3024},
			Replies:  1,
			LastSeen: now,
		},
	}

	out := RenderPeerTable(peers, now)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ID       NAME    ROLE") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "192.168.1.10:3024") || !strings.Contains(lines[1], "3s ago") {
		t.Errorf("unexpected first row %q", lines[1])
	}
	if !strings.Contains(lines[2], "just now") || !strings.Contains(lines[2], " - ") {
		t.Errorf("unexpected second row %q", lines[2])
	}
}

func TestRenderPeerTableEmpty(t *testing.T) {
	withoutColor(t)
	if got := RenderPeerTable(nil, time.Now()); got != "No peers found.\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRenderPeerEvent(t *testing.T) {
	withoutColor(t)

	p := registry.PeerEntry{
		Identity: discovery.Identity{ID: "node-a", Role: "printer"},
		Addr:     transport.Addr{IP: "10.0.0.1", Port: 3024},
	}
	if got := RenderPeerEvent(p, true); got != "+ node-a 10.0.0.1:3024 role=printer" {
		t.Errorf("unexpected new-peer line %q", got)
	}
	if got := RenderPeerEvent(p, false); !strings.HasPrefix(got, "~ ") {
		t.Errorf("unexpected refresh line %q", got)
	}
}

func TestRenderHelpers(t *testing.T) {
	withoutColor(t)

	if got := RenderError(errors.New("boom")); got != "Error: boom" {
		t.Errorf("RenderError = %q", got)
	}
	if got := RenderEvent("chat", "10.0.0.1:3024", ""); got != "» chat from 10.0.0.1:3024: (no data)" {
		t.Errorf("RenderEvent = %q", got)
	}
}
