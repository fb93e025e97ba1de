package core

import (
	"context"
	"strings"
)

// CompletionContext is the state of the suggestion list.
// Selected is -1 when no candidate is selected.
type CompletionContext struct {
	Candidates []string
	Visible    bool
	Selected   int
}

func hiddenCompletion() CompletionContext {
	return CompletionContext{Selected: -1}
}

// FilterCompletion computes the suggestion list for line. The text before the
// last space is handed to source; candidates are kept when they start with the
// token after the last space. Lines whose first space is at index 0, or that
// have no space at all, never complete.
func FilterCompletion(ctx context.Context, line string, source OptionSource) CompletionContext {
	if source == nil || strings.IndexByte(line, ' ') <= 0 {
		return hiddenCompletion()
	}
	cut := strings.LastIndexByte(line, ' ')
	prefix, partial := line[:cut], line[cut+1:]

	var filtered []string
	for _, candidate := range source.Options(ctx, prefix) {
		if strings.HasPrefix(candidate, partial) {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) == 0 {
		return hiddenCompletion()
	}
	if len(filtered) == 1 && filtered[0] == partial {
		return hiddenCompletion()
	}
	out := CompletionContext{Candidates: filtered, Visible: true, Selected: -1}
	if len(filtered) == 1 {
		out.Selected = 0
	}
	return out
}

// AcceptCompletion returns line with the token after the last space replaced by selected.
func AcceptCompletion(line, selected string) string {
	cut := strings.LastIndexByte(line, ' ')
	if cut < 0 {
		return selected
	}
	return line[:cut+1] + selected
}

// Selection returns the selected candidate, if any.
func (c CompletionContext) Selection() (string, bool) {
	if !c.Visible || c.Selected < 0 || c.Selected >= len(c.Candidates) {
		return "", false
	}
	return c.Candidates[c.Selected], true
}

// Move shifts the selection by delta, clamped to the candidate list.
func (c *CompletionContext) Move(delta int) {
	if !c.Visible || len(c.Candidates) == 0 {
		return
	}
	next := c.Selected + delta
	if c.Selected < 0 && delta < 0 {
		next = len(c.Candidates) - 1
	}
	if next < 0 {
		next = 0
	}
	if next >= len(c.Candidates) {
		next = len(c.Candidates) - 1
	}
	c.Selected = next
}
