package schema

import "errors"

var (
	// ErrStartFailed indicates the child process could not be created.
	ErrStartFailed = errors.New("process start failed")
	// ErrSessionBusy indicates a command is already running.
	ErrSessionBusy = errors.New("session is busy")
	// ErrNotRunning indicates no child process is attached.
	ErrNotRunning = errors.New("no running process")
	// ErrInvalidConfig indicates the console config failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrHistoryLocked indicates the history file lock could not be acquired in time.
	ErrHistoryLocked = errors.New("history file is locked")
	// ErrInvalidEncoding indicates an unknown child encoding name.
	ErrInvalidEncoding = errors.New("unknown encoding")
)
