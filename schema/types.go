package schema

// SessionID identifies one console session (a local run or an SSH channel).
type SessionID string

// ThemeName identifies a UI theme.
type ThemeName string

// Style tags a display line. Colours are resolved by the renderer.
type Style string

const (
	// StylePrompt marks prompt lines and the commands typed after them.
	StylePrompt Style = "prompt"
	// StyleOutput marks child stdout and echoed stdin lines.
	StyleOutput Style = "output"
	// StyleError marks child stderr and engine error lines.
	StyleError Style = "error"
	// StyleHelp marks the usage block.
	StyleHelp Style = "help"
)

// DisplayLine is one committed entry of the console document.
type DisplayLine struct {
	Text  string
	Style Style
}

// RepositoryContext describes the working directory the console is attached to.
type RepositoryContext struct {
	WorkingDir   string
	Root         string
	IsRepository bool
}
