package core

import (
	"os"
	"os/exec"
)

// Platform builds child commands and delivers process-level signals.
type Platform interface {
	// Command prepares the child for command and its raw argument string.
	// shell, when set, wraps the whole command line (e.g. ["sh", "-c"]).
	Command(command, args string, shell []string) (*exec.Cmd, error)
	// SuppressWindowing detaches the child from the console's window and signal group.
	SuppressWindowing(cmd *exec.Cmd)
	// RequestCancel delivers the platform's Ctrl+C equivalent without blocking.
	RequestCancel(proc *os.Process) error
	// Kill force-terminates the child and its group.
	Kill(proc *os.Process) error
	// LineTerminator ends every line written to a child's stdin.
	LineTerminator() string
}

func joinCommandLine(command, args string) string {
	if args == "" {
		return command
	}
	return command + " " + args
}
