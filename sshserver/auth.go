package sshserver

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/ssh"
)

// KeyAuthorizer checks public keys against an authorized_keys file,
// reloading it when its modification time changes.
type KeyAuthorizer struct {
	path string

	mu      sync.RWMutex
	keys    [][]byte
	modTime time.Time
	size    int64
}

// NewKeyAuthorizer reads path once so configuration errors surface at startup.
func NewKeyAuthorizer(path string) (*KeyAuthorizer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("authorized keys path is required")
	}
	a := &KeyAuthorizer{path: path}
	if err := a.refreshIfNeeded(); err != nil {
		return nil, err
	}
	return a, nil
}

// Authorized reports whether key is listed.
func (a *KeyAuthorizer) Authorized(key ssh.PublicKey) (bool, error) {
	if err := a.refreshIfNeeded(); err != nil {
		return false, err
	}
	wire := key.Marshal()
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, k := range a.keys {
		if bytes.Equal(k, wire) {
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of loaded keys.
func (a *KeyAuthorizer) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.keys)
}

func (a *KeyAuthorizer) refreshIfNeeded() error {
	info, err := os.Stat(a.path)
	if err != nil {
		return fmt.Errorf("stat authorized keys: %w", err)
	}
	a.mu.RLock()
	fresh := info.ModTime().Equal(a.modTime) && info.Size() == a.size && a.keys != nil
	a.mu.RUnlock()
	if fresh {
		return nil
	}
	keys, err := parseAuthorizedKeys(a.path)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.keys = keys
	a.modTime = info.ModTime()
	a.size = info.Size()
	a.mu.Unlock()
	return nil
}

func parseAuthorizedKeys(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open authorized keys: %w", err)
	}
	defer func() { _ = file.Close() }()
	keys := [][]byte{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("authorized keys %s:%d: %w", path, line, err)
		}
		keys = append(keys, key.Marshal())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read authorized keys: %w", err)
	}
	return keys, nil
}

// ValidateTOTP checks a verification code against secret.
func ValidateTOTP(secret, code string) error {
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return errors.New("invalid totp")
	}
	return nil
}
