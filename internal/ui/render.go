package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edgecli/lanping/internal/registry"
)

var peerColumns = []string{"ID", "NAME", "ROLE", "ADDRESS", "SEEN", "LAST SEEN"}

// RenderPeerTable formats known peers as an aligned table
func RenderPeerTable(peers []registry.PeerEntry, now time.Time) string {
	if len(peers) == 0 {
		return Color(Dim, "No peers found.") + "\n"
	}

	rows := make([][]string, 0, len(peers))
	for _, p := range peers {
		rows = append(rows, []string{
			p.Identity.ID,
			orDash(p.Identity.Name),
			orDash(p.Identity.Role),
			p.Addr.String(),
			strconv.Itoa(p.Replies),
			formatAgo(now.Sub(p.LastSeen)),
		})
	}

	widths := make([]int, len(peerColumns))
	for i, col := range peerColumns {
		widths[i] = len(col)
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := visibleLength(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	for i, col := range peerColumns {
		sb.WriteString(Color(Bold, padRight(col, widths[i])))
		if i < len(peerColumns)-1 {
			sb.WriteString("  ")
		}
	}
	sb.WriteString("\n")
	for _, row := range rows {
		for i, cell := range row {
			if i == 0 {
				cell = Color(Cyan, cell)
			}
			sb.WriteString(padRight(cell, widths[i]))
			if i < len(row)-1 {
				sb.WriteString("  ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderPeerEvent formats a single discovery sighting for streaming output
func RenderPeerEvent(p registry.PeerEntry, isNew bool) string {
	marker := Color(Dim, "~")
	if isNew {
		marker = Color(Green, "+")
	}
	line := fmt.Sprintf("%s %s %s", marker, Color(Cyan, p.Identity.ID), p.Addr)
	if p.Identity.Name != "" {
		line += " name=" + p.Identity.Name
	}
	if p.Identity.Role != "" {
		line += " role=" + Color(Magenta, p.Identity.Role)
	}
	return line
}

// RenderEvent formats an application message for streaming output
func RenderEvent(eventType, from, data string) string {
	if data == "" {
		data = Color(Dim, "(no data)")
	}
	return fmt.Sprintf("%s %s from %s: %s", Color(Yellow, "»"), Color(Bold, eventType), from, data)
}

// RenderError formats an error message
func RenderError(err error) string {
	return Color(Red, fmt.Sprintf("Error: %v", err))
}

// RenderSuccess formats a success message
func RenderSuccess(msg string) string {
	return Color(Green, msg)
}

// RenderDim formats text in dim style
func RenderDim(msg string) string {
	return Color(Dim, msg)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatAgo(d time.Duration) string {
	if d < time.Second {
		return "just now"
	}
	return d.Truncate(time.Second).String() + " ago"
}

func padRight(s string, width int) string {
	n := visibleLength(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// visibleLength returns the visible length of a string, ignoring ANSI codes
func visibleLength(s string) int {
	inEscape := false
	visible := 0
	for _, r := range s {
		if r == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if r == 'm' {
				inEscape = false
			}
			continue
		}
		visible++
	}
	return visible
}
