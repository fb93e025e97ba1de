package tui

import (
	"github.com/charmbracelet/lipgloss"

	"pkt.systems/gitconsole/schema"
)

type palette struct {
	Prompt      string
	Output      string
	Error       string
	Help        string
	Popup       string
	PopupBG     string
	SelectedFG  string
	SelectedBG  string
	StatusFG    string
	StatusBG    string
	RunningFG   string
	ScrollbarFG string
}

var palettes = map[schema.ThemeName]palette{
	"classic": {
		Prompt:      "#4EC9B0",
		Output:      "#D4D4D4",
		Error:       "#F48771",
		Help:        "#9CDCFE",
		Popup:       "#D4D4D4",
		PopupBG:     "#252526",
		SelectedFG:  "#FFFFFF",
		SelectedBG:  "#094771",
		StatusFG:    "#FFFFFF",
		StatusBG:    "#007ACC",
		RunningFG:   "#FFD700",
		ScrollbarFG: "#C586C0",
	},
	"solarized": {
		Prompt:      "#859900",
		Output:      "#839496",
		Error:       "#DC322F",
		Help:        "#268BD2",
		Popup:       "#93A1A1",
		PopupBG:     "#073642",
		SelectedFG:  "#FDF6E3",
		SelectedBG:  "#268BD2",
		StatusFG:    "#FDF6E3",
		StatusBG:    "#586E75",
		RunningFG:   "#B58900",
		ScrollbarFG: "#D33682",
	},
}

// Theme maps display styles onto lipgloss styles.
type Theme struct {
	Name       schema.ThemeName
	Prompt     lipgloss.Style
	Output     lipgloss.Style
	Error      lipgloss.Style
	Help       lipgloss.Style
	Popup      lipgloss.Style
	Selected   lipgloss.Style
	StatusBar  lipgloss.Style
	Running    lipgloss.Style
	Scrollback lipgloss.Style
}

// NewTheme builds the named theme on r. Unknown names fall back to the default.
// The mono theme uses attributes only.
func NewTheme(name schema.ThemeName, r *lipgloss.Renderer) Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if normalized, ok := schema.NormalizeThemeName(string(name)); ok {
		name = normalized
	} else {
		name = schema.DefaultTheme
	}
	p, ok := palettes[name]
	if !ok {
		return Theme{
			Name:       name,
			Prompt:     r.NewStyle().Bold(true),
			Output:     r.NewStyle(),
			Error:      r.NewStyle().Underline(true),
			Help:       r.NewStyle().Faint(true),
			Popup:      r.NewStyle(),
			Selected:   r.NewStyle().Reverse(true),
			StatusBar:  r.NewStyle().Reverse(true),
			Running:    r.NewStyle().Reverse(true).Bold(true),
			Scrollback: r.NewStyle().Reverse(true).Italic(true),
		}
	}
	color := func(s string) lipgloss.Color { return lipgloss.Color(s) }
	return Theme{
		Name:       name,
		Prompt:     r.NewStyle().Foreground(color(p.Prompt)).Bold(true),
		Output:     r.NewStyle().Foreground(color(p.Output)),
		Error:      r.NewStyle().Foreground(color(p.Error)),
		Help:       r.NewStyle().Foreground(color(p.Help)),
		Popup:      r.NewStyle().Foreground(color(p.Popup)).Background(color(p.PopupBG)),
		Selected:   r.NewStyle().Foreground(color(p.SelectedFG)).Background(color(p.SelectedBG)).Bold(true),
		StatusBar:  r.NewStyle().Foreground(color(p.StatusFG)).Background(color(p.StatusBG)),
		Running:    r.NewStyle().Foreground(color(p.RunningFG)).Background(color(p.StatusBG)).Bold(true),
		Scrollback: r.NewStyle().Foreground(color(p.ScrollbarFG)).Background(color(p.StatusBG)),
	}
}

// Style returns the lipgloss style for a display line style.
func (t Theme) Style(s schema.Style) lipgloss.Style {
	switch s {
	case schema.StylePrompt:
		return t.Prompt
	case schema.StyleError:
		return t.Error
	case schema.StyleHelp:
		return t.Help
	default:
		return t.Output
	}
}
