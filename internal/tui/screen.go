package tui

import (
	"fmt"
	"io"
	"strings"
)

// Screen writes full frames to an ANSI terminal.
type Screen struct {
	out io.Writer
	// crlf terminates rows with CRLF; raw-mode terminals do not translate LF.
	crlf bool
}

// NewScreen wraps out.
func NewScreen(out io.Writer) *Screen {
	return &Screen{out: out, crlf: true}
}

// EnterAltScreen switches to the alternate buffer and clears it.
func (s *Screen) EnterAltScreen() {
	_, _ = io.WriteString(s.out, "\x1b[?1049h\x1b[H\x1b[2J")
}

// ExitAltScreen restores the primary buffer and the cursor.
func (s *Screen) ExitAltScreen() {
	_, _ = io.WriteString(s.out, "\x1b[?1049l\x1b[?25h")
}

// Render repaints rows from the top-left corner, clearing what the previous
// frame left behind, and parks the cursor at the 1-based cursorRow/cursorCol.
func (s *Screen) Render(rows []string, cursorRow, cursorCol int) error {
	if cursorRow < 1 {
		cursorRow = 1
	}
	if cursorCol < 1 {
		cursorCol = 1
	}
	eol := "\n"
	if s.crlf {
		eol = "\r\n"
	}
	var b strings.Builder
	b.WriteString("\x1b[?25l\x1b[H")
	for i, row := range rows {
		if i > 0 {
			b.WriteString(eol)
		}
		b.WriteString(row)
		b.WriteString("\x1b[K")
	}
	b.WriteString("\x1b[J")
	fmt.Fprintf(&b, "\x1b[%d;%dH", cursorRow, cursorCol)
	b.WriteString("\x1b[?25h")
	_, err := io.WriteString(s.out, b.String())
	return err
}
