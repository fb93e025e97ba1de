package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"pkt.systems/gitconsole/core"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	// maxPopupRows caps the completion list below the live line.
	maxPopupRows = 6
	tabWidth     = 8
)

// Frame is a laid-out view: rows to paint and the 1-based cursor position.
type Frame struct {
	Rows      []string
	CursorRow int
	CursorCol int
}

type cell struct {
	r      rune
	prompt bool
}

// Layout arranges v into at most v.Height rows: scrollback, the live line
// (kept visible even when scrolled), the completion list and a status bar.
func Layout(v core.View, theme Theme) Frame {
	width, height := v.Width, v.Height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	body := height - 1
	if body < 1 {
		body = 1
	}

	live, caretRow, caretCol := layoutLive(v, width, theme)
	popup := layoutPopup(v.Completion, width, theme)
	if len(live)+len(popup) > body {
		popup = popup[:max(0, body-len(live))]
	}
	if len(live) > body {
		drop := len(live) - body
		if drop > caretRow {
			drop = caretRow
		}
		live = live[drop:]
		caretRow -= drop
		if len(live) > body {
			live = live[:body]
		}
	}

	var history []string
	for _, line := range v.Lines {
		style := theme.Style(line.Style)
		for _, row := range wrap(line.Text, width) {
			history = append(history, style.Render(row))
		}
	}
	room := body - len(live) - len(popup)
	if room < 0 {
		room = 0
	}
	if len(history) > room {
		history = history[len(history)-room:]
	}

	rows := make([]string, 0, height)
	rows = append(rows, history...)
	cursorRow := len(rows) + caretRow + 1
	rows = append(rows, live...)
	rows = append(rows, popup...)
	for len(rows) < body {
		rows = append(rows, "")
	}
	rows = append(rows, statusBar(v, width, theme))
	return Frame{Rows: rows, CursorRow: cursorRow, CursorCol: caretCol + 1}
}

// layoutLive wraps prompt+input and locates the caret. The caret may sit one
// past the last cell, which wraps to the next row when the row is full.
func layoutLive(v core.View, width int, theme Theme) ([]string, int, int) {
	cells := make([]cell, 0, len(v.Prompt)+len(v.Input))
	for _, r := range v.Prompt {
		cells = append(cells, cell{r: sanitizeRune(r), prompt: true})
	}
	for _, r := range v.Input {
		cells = append(cells, cell{r: sanitizeRune(r)})
	}

	var (
		rows     [][]cell
		current  []cell
		col      int
		caretRow int
		caretCol int
	)
	for i, c := range cells {
		w := runewidth.RuneWidth(c.r)
		if col+w > width && len(current) > 0 {
			rows = append(rows, current)
			current = nil
			col = 0
		}
		if i == v.Caret {
			caretRow, caretCol = len(rows), col
		}
		current = append(current, c)
		col += w
	}
	if v.Caret >= len(cells) {
		if col >= width {
			rows = append(rows, current)
			current = nil
			col = 0
		}
		caretRow, caretCol = len(rows), col
	}
	rows = append(rows, current)

	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = renderCells(row, theme)
	}
	return out, caretRow, caretCol
}

func renderCells(row []cell, theme Theme) string {
	var b strings.Builder
	start := 0
	for start < len(row) {
		end := start
		for end < len(row) && row[end].prompt == row[start].prompt {
			end++
		}
		text := make([]rune, 0, end-start)
		for _, c := range row[start:end] {
			text = append(text, c.r)
		}
		style := theme.Output
		if row[start].prompt {
			style = theme.Prompt
		}
		b.WriteString(style.Render(string(text)))
		start = end
	}
	return b.String()
}

func layoutPopup(c core.CompletionContext, width int, theme Theme) []string {
	if !c.Visible || len(c.Candidates) == 0 {
		return nil
	}
	first := 0
	if c.Selected >= maxPopupRows {
		first = c.Selected - maxPopupRows + 1
	}
	last := min(len(c.Candidates), first+maxPopupRows)

	itemWidth := 0
	for _, candidate := range c.Candidates[first:last] {
		itemWidth = max(itemWidth, runewidth.StringWidth(candidate))
	}
	itemWidth = min(itemWidth+2, width)

	rows := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		text := runewidth.FillRight(runewidth.Truncate(" "+c.Candidates[i], itemWidth, ""), itemWidth)
		style := theme.Popup
		if i == c.Selected {
			style = theme.Selected
		}
		rows = append(rows, style.Render(text))
	}
	return rows
}

func statusBar(v core.View, width int, theme Theme) string {
	stateText, stateStyle := " idle ", theme.StatusBar
	if v.Running {
		stateText, stateStyle = " running ", theme.Running
	}
	scrollText := ""
	if !v.AtBottom {
		scrollText = fmt.Sprintf(" scrollback -%d ", v.ScrollOffset)
	}
	dirWidth := width - runewidth.StringWidth(stateText) - runewidth.StringWidth(scrollText)
	var b strings.Builder
	if dirWidth > 0 {
		dir := runewidth.FillRight(runewidth.Truncate(" "+v.WorkingDir, dirWidth, "…"), dirWidth)
		b.WriteString(theme.StatusBar.Render(dir))
	}
	if scrollText != "" {
		b.WriteString(theme.Scrollback.Render(scrollText))
	}
	b.WriteString(stateStyle.Render(stateText))
	return b.String()
}

// wrap hard-wraps text into rows no wider than width. Tabs expand and other
// control characters are made visible; child output is never interpreted.
func wrap(text string, width int) []string {
	var (
		rows []string
		b    strings.Builder
		col  int
	)
	flush := func() {
		rows = append(rows, b.String())
		b.Reset()
		col = 0
	}
	for _, segment := range strings.Split(text, "\n") {
		for _, r := range segment {
			if r == '\t' {
				n := tabWidth - col%tabWidth
				for i := 0; i < n; i++ {
					if col >= width {
						flush()
						break
					}
					b.WriteByte(' ')
					col++
				}
				continue
			}
			r = sanitizeRune(r)
			w := runewidth.RuneWidth(r)
			if col+w > width && col > 0 {
				flush()
			}
			b.WriteRune(r)
			col += w
		}
		flush()
	}
	return rows
}

func sanitizeRune(r rune) rune {
	switch {
	case r < 0x20:
		return 0x2400 + r
	case r == 0x7f:
		return '␡'
	default:
		return r
	}
}
