package core

import "strings"

// CommandHistory is the ordered log of submitted commands plus a navigation cursor.
// Cursor is in [0, len]; len means "new empty line".
type CommandHistory struct {
	entries []string
	cursor  int
	max     int
}

// NewCommandHistory returns an empty history retaining at most max entries.
func NewCommandHistory(max int) *CommandHistory {
	if max <= 0 {
		max = defaultHistoryMax
	}
	return &CommandHistory{max: max}
}

// NewCommandHistoryFromPersisted seeds a history from stored entries.
func NewCommandHistoryFromPersisted(entries []string, max int) *CommandHistory {
	h := NewCommandHistory(max)
	for _, entry := range entries {
		h.Append(entry)
	}
	return h
}

// Append stores command unless it is blank or repeats the last entry.
// It reports whether the entry was stored. The cursor is reset either way.
func (h *CommandHistory) Append(command string) bool {
	if h == nil {
		return false
	}
	defer h.Reset()
	if strings.TrimSpace(command) == "" {
		return false
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == command {
		return false
	}
	h.entries = append(h.entries, command)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
	return true
}

// NavigateUp moves to the previous entry. Repeated calls at index 0 keep
// returning entry 0. ok is false only when the history is empty.
func (h *CommandHistory) NavigateUp() (string, bool) {
	if h == nil || len(h.entries) == 0 {
		return "", false
	}
	h.cursor--
	if h.cursor < 0 {
		h.cursor = 0
	}
	if h.cursor > len(h.entries)-1 {
		h.cursor = len(h.entries) - 1
	}
	return h.entries[h.cursor], true
}

// NavigateDown moves to the next entry. Past the last entry the cursor
// rests at len and the empty line is returned.
func (h *CommandHistory) NavigateDown() (string, bool) {
	if h == nil || len(h.entries) == 0 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = len(h.entries)
		return "", true
	}
	return h.entries[h.cursor], true
}

// Reset moves the cursor back to the new-line position.
func (h *CommandHistory) Reset() {
	if h == nil {
		return
	}
	h.cursor = len(h.entries)
}

// Len returns the number of stored entries.
func (h *CommandHistory) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// Cursor returns the navigation index.
func (h *CommandHistory) Cursor() int {
	if h == nil {
		return 0
	}
	return h.cursor
}

// Entries returns a copy of the stored commands, oldest first.
func (h *CommandHistory) Entries() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.entries...)
}

const defaultHistoryMax = 500
