package sshserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/ssh"

	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/schema"
)

type testConsoles struct {
	dir string

	mu    sync.Mutex
	users []string
}

func (c *testConsoles) NewConsole(ctx context.Context, user string, renderer core.Renderer) (*core.Engine, error) {
	c.mu.Lock()
	c.users = append(c.users, user)
	c.mu.Unlock()
	return core.NewEngine(schema.ConsoleConfig{WorkingDir: c.dir}, core.EngineDeps{Renderer: renderer})
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func expectOutput(t *testing.T, out *lockedBuffer, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output %q", want, out.String())
}

func startTestServer(t *testing.T, secret string, signers ...ssh.Signer) (string, *testConsoles) {
	t.Helper()
	dir := t.TempDir()
	keysPath := filepath.Join(dir, "authorized_keys")
	writeAuthorizedKeys(t, keysPath, signers...)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	consoles := &testConsoles{dir: t.TempDir()}
	server := &Server{
		Config: Config{
			Addr:           ln.Addr().String(),
			HostKeyPath:    filepath.Join(dir, "host_key"),
			AuthorizedKeys: keysPath,
			TOTPSecret:     secret,
			Theme:          schema.DefaultTheme,
		},
		Listener: ln,
		Consoles: consoles,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.ListenAndServe(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String(), consoles
}

func dial(addr string, auth ...ssh.AuthMethod) (*ssh.Client, error) {
	return ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            "alice",
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
}

func startShell(t *testing.T, client *ssh.Client) (io.Writer, *lockedBuffer, *ssh.Session) {
	t.Helper()
	session, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = session.Close() })
	if err := session.RequestPty("dumb", 40, 100, ssh.TerminalModes{}); err != nil {
		t.Fatal(err)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Shell(); err != nil {
		t.Fatal(err)
	}
	output := &lockedBuffer{}
	go func() {
		_, _ = io.Copy(output, stdout)
	}()
	return stdin, output, session
}

func waitSession(t *testing.T, session *ssh.Session) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()
	select {
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close")
		return nil
	case err := <-done:
		return err
	}
}

func TestSSHConsoleSession(t *testing.T) {
	signer := newTestSigner(t)
	addr, consoles := startTestServer(t, "", signer)

	client, err := dial(addr, ssh.PublicKeys(signer))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	stdin, output, session := startShell(t, client)

	expectOutput(t, output, schema.FormatPrompt(schema.NotRepositoryStatus), 5*time.Second)
	if _, err := fmt.Fprint(stdin, "help\r"); err != nil {
		t.Fatal(err)
	}
	expectOutput(t, output, schema.HelpText[0], 5*time.Second)

	if _, err := fmt.Fprint(stdin, "exit\r"); err != nil {
		t.Fatal(err)
	}
	if err := waitSession(t, session); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	consoles.mu.Lock()
	defer consoles.mu.Unlock()
	if len(consoles.users) != 1 || consoles.users[0] != "alice" {
		t.Fatalf("expected one console for alice, got %v", consoles.users)
	}
}

func TestSSHRejectsUnknownKey(t *testing.T) {
	addr, _ := startTestServer(t, "", newTestSigner(t))
	if client, err := dial(addr, ssh.PublicKeys(newTestSigner(t))); err == nil {
		_ = client.Close()
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestSSHRequiresPty(t *testing.T) {
	signer := newTestSigner(t)
	addr, _ := startTestServer(t, "", signer)
	client, err := dial(addr, ssh.PublicKeys(signer))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	session, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()
	out, err := session.CombinedOutput("")
	if err == nil {
		t.Fatalf("expected non-zero exit without a pty")
	}
	if !strings.Contains(string(out), "pty required") {
		t.Fatalf("expected pty message, got %q", out)
	}
}

func TestSSHTOTP(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "gitconsole", AccountName: "alice"})
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	signer := newTestSigner(t)
	addr, _ := startTestServer(t, key.Secret(), signer)

	if client, err := dial(addr, ssh.PublicKeys(signer)); err == nil {
		_ = client.Close()
		t.Fatalf("expected key alone to be insufficient")
	}
	wrong := ssh.KeyboardInteractive(func(_, _ string, _ []string, _ []bool) ([]string, error) {
		return []string{"000000x"}, nil
	})
	if client, err := dial(addr, ssh.PublicKeys(signer), wrong); err == nil {
		_ = client.Close()
		t.Fatalf("expected wrong code to be rejected")
	}

	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("totp code: %v", err)
	}
	right := ssh.KeyboardInteractive(func(_, _ string, _ []string, _ []bool) ([]string, error) {
		return []string{code}, nil
	})
	client, err := dial(addr, ssh.PublicKeys(signer), right)
	if err != nil {
		t.Fatalf("dial with code: %v", err)
	}
	_ = client.Close()
}

func TestEnviron(t *testing.T) {
	env := []string{"TERM=xterm", "COLORTERM=truecolor"}
	if got := environ(env, "COLORTERM"); got != "truecolor" {
		t.Fatalf("expected truecolor, got %q", got)
	}
	if got := environ(env, "LANG"); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
