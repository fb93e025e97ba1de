package core

import (
	"strings"

	"pkt.systems/gitconsole/schema"
)

// documentView is a snapshot of a document's visible state.
type documentView struct {
	Lines        []schema.DisplayLine
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
	Prompt       string
	Input        string
	Caret        int
}

// Document is the console display buffer: committed lines plus one live line.
// The live line is a prompt token followed by editable input. Committed lines
// are never edited; ClearAll is the only way to remove them.
// ScrollOffset is the number of lines from the bottom; 0 means at bottom.
type Document struct {
	lines        []schema.DisplayLine
	scrollOffset int
	maxLines     int

	prompt []rune
	input  []rune
	// caret is a column on the live line, prompt included.
	caret int
}

// NewDocument returns a document keeping at most maxLines committed lines (0 = unlimited).
func NewDocument(maxLines int) *Document {
	if maxLines < 0 {
		maxLines = 0
	}
	return &Document{maxLines: maxLines}
}

// AppendLine commits text with style. Empty text is ignored. If the view is
// scrolled up, the scroll offset is increased to keep it anchored.
func (d *Document) AppendLine(text string, style schema.Style) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return
	}
	d.lines = append(d.lines, schema.DisplayLine{Text: text, Style: style})
	if d.scrollOffset > 0 {
		d.scrollOffset++
	}
	if d.maxLines > 0 && len(d.lines) > d.maxLines {
		trim := len(d.lines) - d.maxLines
		d.lines = d.lines[trim:]
		if d.scrollOffset > len(d.lines) {
			d.scrollOffset = len(d.lines)
		}
	}
}

// ClearAll wipes every committed line and the live line.
func (d *Document) ClearAll() {
	d.lines = nil
	d.scrollOffset = 0
	d.prompt = nil
	d.input = nil
	d.caret = 0
}

// BeginLine commits the live line and opens a new one behind prompt.
func (d *Document) BeginLine(prompt string) {
	d.commitLive(schema.StylePrompt)
	d.prompt = []rune(prompt)
	d.input = nil
	d.caret = len(d.prompt)
	d.scrollOffset = 0
}

// CommitLine commits the live line and opens an empty one without a prompt.
// Lines carrying a prompt are always committed as prompt lines.
func (d *Document) CommitLine(style schema.Style) {
	d.commitLive(style)
	d.prompt = nil
	d.input = nil
	d.caret = 0
	d.scrollOffset = 0
}

func (d *Document) commitLive(style schema.Style) {
	if len(d.prompt) > 0 {
		style = schema.StylePrompt
	}
	d.AppendLine(d.CurrentLineText(), style)
}

// SetPrompt rewrites the live line's prompt token in place, keeping input and
// the caret's position relative to the input.
func (d *Document) SetPrompt(prompt string) {
	rel := d.caret - len(d.prompt)
	d.prompt = []rune(prompt)
	if rel < 0 {
		rel = 0
	}
	d.caret = len(d.prompt) + rel
}

// Prompt returns the live line's prompt token.
func (d *Document) Prompt() string {
	return string(d.prompt)
}

// Input returns the editable text after the prompt.
func (d *Document) Input() string {
	return string(d.input)
}

// CurrentLineText returns the full live line, prompt included.
func (d *Document) CurrentLineText() string {
	return string(d.prompt) + string(d.input)
}

// ReplaceCurrentInputSpan replaces everything after the prompt and moves the caret to the end.
func (d *Document) ReplaceCurrentInputSpan(text string) {
	d.input = []rune(text)
	d.CaretToEnd()
}

// CaretColumn returns the caret position on the live line.
func (d *Document) CaretColumn() int {
	return d.caret
}

// SetCaretColumn places the caret, clamped to the live line.
func (d *Document) SetCaretColumn(col int) {
	if col < 0 {
		col = 0
	}
	if max := d.lineLen(); col > max {
		col = max
	}
	d.caret = col
}

// CaretToEnd moves the caret to the end of the document.
func (d *Document) CaretToEnd() {
	d.caret = d.lineLen()
}

// AtEnd reports whether the caret sits at the end of the document.
func (d *Document) AtEnd() bool {
	return d.caret == d.lineLen()
}

func (d *Document) lineLen() int {
	return len(d.prompt) + len(d.input)
}

// guard rejects edits whose caret lies inside the prompt, snapping the caret
// to the end instead.
func (d *Document) guard() bool {
	if d.caret < len(d.prompt) {
		d.CaretToEnd()
		return false
	}
	return true
}

func (d *Document) pos() int {
	return d.caret - len(d.prompt)
}

// InsertRune inserts r at the caret. It reports whether the input changed.
func (d *Document) InsertRune(r rune) bool {
	if !d.guard() {
		return false
	}
	pos := d.pos()
	d.input = append(d.input[:pos], append([]rune{r}, d.input[pos:]...)...)
	d.caret++
	return true
}

// Backspace deletes the rune before the caret. It never deletes into the prompt.
func (d *Document) Backspace() bool {
	if !d.guard() {
		return false
	}
	pos := d.pos()
	if pos == 0 {
		return false
	}
	d.input = append(d.input[:pos-1], d.input[pos:]...)
	d.caret--
	return true
}

// Delete removes the rune under the caret.
func (d *Document) Delete() bool {
	if !d.guard() {
		return false
	}
	pos := d.pos()
	if pos >= len(d.input) {
		return false
	}
	d.input = append(d.input[:pos], d.input[pos+1:]...)
	return true
}

// DeleteWordBackward removes the word before the caret.
func (d *Document) DeleteWordBackward() bool {
	if !d.guard() {
		return false
	}
	pos := d.pos()
	start := pos
	for start > 0 && isSpace(d.input[start-1]) {
		start--
	}
	for start > 0 && !isSpace(d.input[start-1]) {
		start--
	}
	if start == pos {
		return false
	}
	d.input = append(d.input[:start], d.input[pos:]...)
	d.caret = len(d.prompt) + start
	return true
}

// KillLineStart removes the input before the caret.
func (d *Document) KillLineStart() bool {
	if !d.guard() {
		return false
	}
	pos := d.pos()
	if pos == 0 {
		return false
	}
	d.input = append([]rune(nil), d.input[pos:]...)
	d.caret = len(d.prompt)
	return true
}

// KillLineEnd removes the input after the caret.
func (d *Document) KillLineEnd() bool {
	if !d.guard() {
		return false
	}
	pos := d.pos()
	if pos >= len(d.input) {
		return false
	}
	d.input = d.input[:pos]
	return true
}

// MoveLeft moves the caret one column left. The caret may enter the prompt;
// the next edit then snaps it back to the end.
func (d *Document) MoveLeft() {
	if d.caret > 0 {
		d.caret--
	}
}

// MoveRight moves the caret one column right.
func (d *Document) MoveRight() {
	if d.caret < d.lineLen() {
		d.caret++
	}
}

// MoveStart moves the caret to the start of the input.
func (d *Document) MoveStart() {
	d.caret = len(d.prompt)
}

// Scroll adjusts the scroll offset by delta. Positive delta scrolls up (older lines),
// negative delta scrolls down. Limit is the viewport height.
func (d *Document) Scroll(delta, limit int) {
	d.scrollOffset = clampScroll(d.scrollOffset+delta, len(d.lines), limit)
}

// ResetScroll returns the view to the bottom.
func (d *Document) ResetScroll() {
	d.scrollOffset = 0
}

// Lines returns a copy of every committed line.
func (d *Document) Lines() []schema.DisplayLine {
	return append([]schema.DisplayLine(nil), d.lines...)
}

// Snapshot returns a view of the document for the given viewport limit.
func (d *Document) Snapshot(limit int) documentView {
	total := len(d.lines)
	if limit <= 0 || limit > total {
		limit = total
	}

	maxScroll := maxScroll(total, limit)
	if d.scrollOffset > maxScroll {
		d.scrollOffset = maxScroll
	}

	end := total - d.scrollOffset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	lines := make([]schema.DisplayLine, end-start)
	copy(lines, d.lines[start:end])

	return documentView{
		Lines:        lines,
		TotalLines:   total,
		ScrollOffset: d.scrollOffset,
		AtBottom:     d.scrollOffset == 0,
		Prompt:       string(d.prompt),
		Input:        string(d.input),
		Caret:        d.caret,
	}
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
