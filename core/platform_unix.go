//go:build !windows

package core

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

type unixPlatform struct{}

// DefaultPlatform returns the platform implementation for this OS.
func DefaultPlatform() Platform {
	return unixPlatform{}
}

func (unixPlatform) Command(command, args string, shell []string) (*exec.Cmd, error) {
	if len(shell) > 0 {
		argv := append(append([]string(nil), shell[1:]...), joinCommandLine(command, args))
		return exec.Command(shell[0], argv...), nil
	}
	cmd := exec.Command(command, SplitArguments(args)...)
	if cmd.Err != nil {
		return nil, cmd.Err
	}
	return cmd, nil
}

func (unixPlatform) SuppressWindowing(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

func (unixPlatform) RequestCancel(proc *os.Process) error {
	return signalGroup(proc, unix.SIGINT)
}

func (unixPlatform) Kill(proc *os.Process) error {
	return signalGroup(proc, unix.SIGKILL)
}

func (unixPlatform) LineTerminator() string {
	return "\n"
}

func signalGroup(proc *os.Process, sig unix.Signal) error {
	if proc == nil || proc.Pid <= 0 {
		return nil
	}
	if err := unix.Kill(-proc.Pid, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	return nil
}
