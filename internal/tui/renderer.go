package tui

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/schema"
)

// Renderer implements core.Renderer on an ANSI terminal.
type Renderer struct {
	screen *Screen
	theme  Theme
}

// NewRenderer draws onto out with the named theme. The colour profile is
// fixed up front because out is often not the process's own terminal.
func NewRenderer(out io.Writer, theme schema.ThemeName, profile termenv.Profile) *Renderer {
	lr := lipgloss.NewRenderer(out)
	lr.SetColorProfile(profile)
	return &Renderer{
		screen: NewScreen(out),
		theme:  NewTheme(theme, lr),
	}
}

// ProfileForTerm picks a colour profile from a TERM value and COLORTERM hint.
func ProfileForTerm(term, colorTerm string) termenv.Profile {
	switch {
	case colorTerm == "truecolor" || colorTerm == "24bit":
		return termenv.TrueColor
	case term == "" || term == "dumb":
		return termenv.Ascii
	case strings.HasSuffix(term, "256color"):
		return termenv.ANSI256
	default:
		return termenv.ANSI
	}
}

// Screen returns the underlying screen for alt-buffer control.
func (r *Renderer) Screen() *Screen {
	return r.screen
}

// Render lays out v and repaints the terminal.
func (r *Renderer) Render(v core.View) error {
	frame := Layout(v, r.theme)
	return r.screen.Render(frame.Rows, frame.CursorRow, frame.CursorCol)
}
