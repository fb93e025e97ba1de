package core

import "pkt.systems/gitconsole/schema"

// Renderer draws engine views onto a display surface.
type Renderer interface {
	Render(view View) error
}

// View is everything a renderer needs to draw one frame.
type View struct {
	Lines        []schema.DisplayLine
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
	Prompt       string
	Input        string
	// Caret is a rune column on Prompt+Input.
	Caret      int
	Completion CompletionContext
	Running    bool
	WorkingDir string
	Width      int
	Height     int
}

// Size is a terminal geometry update.
type Size struct {
	Width  int
	Height int
}
