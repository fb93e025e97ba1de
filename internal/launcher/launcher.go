// Package launcher opens an external terminal window in a directory.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"pkt.systems/gitconsole/core"
	"pkt.systems/pslog"
)

// DirPlaceholder is replaced with the target directory in every argument.
const DirPlaceholder = "{dir}"

// DefaultCommand returns the platform's terminal command line.
func DefaultCommand() string {
	switch runtime.GOOS {
	case "windows":
		return `cmd.exe /C start cmd.exe /K "cd /d {dir}"`
	case "darwin":
		return "open -a Terminal {dir}"
	default:
		return "x-terminal-emulator"
	}
}

// Launcher implements core.TerminalLauncher by starting a detached process.
type Launcher struct {
	argv []string
	log  pslog.Logger
}

// New parses commandLine (shell-style quoting, no expansion). An empty
// commandLine selects DefaultCommand.
func New(commandLine string, logger pslog.Logger) (*Launcher, error) {
	if strings.TrimSpace(commandLine) == "" {
		commandLine = DefaultCommand()
	}
	argv := core.SplitArguments(commandLine)
	if len(argv) == 0 {
		return nil, errors.New("terminal command is empty")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Launcher{argv: argv, log: logger}, nil
}

// Argv returns the command with dir substituted.
func (l *Launcher) Argv(dir string) []string {
	out := make([]string, len(l.argv))
	for i, arg := range l.argv {
		out[i] = strings.ReplaceAll(arg, DirPlaceholder, dir)
	}
	return out
}

// Open starts the terminal in dir and returns once it has been spawned.
// The child is reaped in the background.
func (l *Launcher) Open(_ context.Context, dir string) error {
	argv := l.Argv(dir)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		l.log.Warn("terminal start failed", "command", argv[0], "dir", dir, "err", err)
		return fmt.Errorf("open terminal %q: %w", argv[0], err)
	}
	l.log.Info("terminal start", "command", argv[0], "dir", dir, "pid", cmd.Process.Pid)
	go func() {
		if err := cmd.Wait(); err != nil {
			l.log.Debug("terminal exit", "command", argv[0], "err", err)
		}
	}()
	return nil
}
