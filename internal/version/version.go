package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/gitconsole"

// buildVersion is set via -ldflags "-X pkt.systems/gitconsole/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Version  string
	Module   string
	Revision string
	Modified bool
	Go       string
}

// Current returns the best available version string without the dirty suffix.
func Current() string {
	return Read().Version
}

// Read collects version details from the linker flag and build info.
func Read() Info {
	info := Info{Module: defaultModule, Go: runtime.Version()}
	build, ok := debug.ReadBuildInfo()
	if ok {
		if path := strings.TrimSpace(build.Main.Path); path != "" {
			info.Module = path
		}
		info.Revision, info.Modified = vcsState(build)
	}
	switch {
	case strings.TrimSpace(buildVersion) != "":
		info.Version = strings.TrimSpace(buildVersion)
	case ok && build.Main.Version != "" && build.Main.Version != "(devel)":
		info.Version = build.Main.Version
	case ok:
		info.Version = pseudoVersion(build)
	}
	if info.Version == "" {
		info.Version = "v0.0.0-unknown"
	}
	info.Version = strings.TrimSuffix(info.Version, "+dirty")
	return info
}

// String renders the info on one line.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Module)
	b.WriteString(" ")
	b.WriteString(i.Version)
	if i.Revision != "" {
		b.WriteString(" (")
		b.WriteString(shortRevision(i.Revision))
		if i.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	if i.Go != "" {
		b.WriteString(" ")
		b.WriteString(i.Go)
	}
	return b.String()
}

func vcsState(info *debug.BuildInfo) (string, bool) {
	var revision string
	var modified bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	return revision, modified
}

// pseudoVersion builds a Go-style pseudo version from VCS stamps.
func pseudoVersion(info *debug.BuildInfo) string {
	if info == nil {
		return ""
	}
	revision, _ := vcsState(info)
	var stamp string
	for _, setting := range info.Settings {
		if setting.Key == "vcs.time" {
			stamp = setting.Value
		}
	}
	if revision == "" || stamp == "" {
		return ""
	}
	parsed, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return ""
	}
	return "v0.0.0-" + parsed.UTC().Format("20060102150405") + "-" + shortRevision(revision)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
