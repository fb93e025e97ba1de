package sshserver

import (
	"time"

	"pkt.systems/gitconsole/schema"
)

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	// AuthorizedKeys is an OpenSSH authorized_keys file; any listed key may log in.
	AuthorizedKeys string
	// TOTPSecret enables a verification-code prompt after key auth when set.
	TOTPSecret  string
	IdleTimeout time.Duration
	Theme       schema.ThemeName
}
