// Package gitcomplete supplies completion candidates for git command lines:
// subcommands, their options, and branch or remote names from the
// repository the console is attached to.
package gitcomplete

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

//go:embed catalog.toml
var defaultCatalog []byte

// Command describes one git subcommand.
type Command struct {
	Options []string `toml:"options"`
	// Refs offers branch names after the subcommand.
	Refs bool `toml:"refs"`
	// Remotes offers remote names after the subcommand.
	Remotes bool `toml:"remotes"`
}

// Catalog is the static part of git completion.
type Catalog struct {
	Global   []string           `toml:"global"`
	Commands map[string]Command `toml:"commands"`
}

// DefaultCatalog decodes the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// ParseCatalog decodes a TOML catalog. Unknown keys are rejected.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Catalog{}, fmt.Errorf("decode completion catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Catalog{}, fmt.Errorf("decode completion catalog: unknown key %s", undecoded[0])
	}
	return c, nil
}

// Merge overlays other onto c. Commands in other replace those in c.
func (c Catalog) Merge(other Catalog) Catalog {
	out := Catalog{
		Global:   append([]string(nil), c.Global...),
		Commands: make(map[string]Command, len(c.Commands)+len(other.Commands)),
	}
	if len(other.Global) > 0 {
		out.Global = append([]string(nil), other.Global...)
	}
	for name, cmd := range c.Commands {
		out.Commands[name] = cmd
	}
	for name, cmd := range other.Commands {
		out.Commands[name] = cmd
	}
	return out
}

// Subcommands returns every subcommand name, sorted.
func (c Catalog) Subcommands() []string {
	names := make([]string, 0, len(c.Commands))
	for name := range c.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
