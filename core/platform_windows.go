//go:build windows

package core

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

type windowsPlatform struct{}

// DefaultPlatform returns the platform implementation for this OS.
func DefaultPlatform() Platform {
	return windowsPlatform{}
}

// Command runs everything through cmd.exe /C so shell built-ins such as dir
// work and output stays redirected while the window is hidden.
func (windowsPlatform) Command(command, args string, shell []string) (*exec.Cmd, error) {
	if len(shell) == 0 {
		comspec := os.Getenv("ComSpec")
		if comspec == "" {
			comspec = "cmd.exe"
		}
		shell = []string{comspec, "/C"}
	}
	cmd := exec.Command(shell[0])
	line := syscall.EscapeArg(shell[0])
	for _, arg := range shell[1:] {
		line += " " + arg
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: line + " " + joinCommandLine(command, args)}
	if cmd.Err != nil {
		return nil, cmd.Err
	}
	return cmd, nil
}

func (windowsPlatform) SuppressWindowing(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

func (windowsPlatform) RequestCancel(proc *os.Process) error {
	if proc == nil || proc.Pid <= 0 {
		return nil
	}
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(proc.Pid))
}

func (windowsPlatform) Kill(proc *os.Process) error {
	if proc == nil {
		return nil
	}
	return proc.Kill()
}

func (windowsPlatform) LineTerminator() string {
	return "\r\n"
}
