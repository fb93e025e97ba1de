package schema

import "strings"

// DefaultTheme is the default console theme name.
const DefaultTheme ThemeName = "classic"

var themeNames = []ThemeName{
	"classic",
	"solarized",
	"mono",
}

// AvailableThemes returns the supported theme names.
func AvailableThemes() []ThemeName {
	out := make([]ThemeName, len(themeNames))
	copy(out, themeNames)
	return out
}

// NormalizeThemeName returns a canonical theme name if supported.
func NormalizeThemeName(name string) (ThemeName, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	switch normalized {
	case "classic", "default", "vs":
		return "classic", true
	case "solarized", "solarized-dark":
		return "solarized", true
	case "mono", "monochrome", "plain":
		return "mono", true
	default:
		return "", false
	}
}
