package sshserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/internal/logx"
	"pkt.systems/gitconsole/internal/tui"
	"pkt.systems/pslog"
)

// ConsoleFactory builds one console engine per SSH session.
type ConsoleFactory interface {
	NewConsole(ctx context.Context, user string, renderer core.Renderer) (*core.Engine, error)
}

// Server exposes the git console over SSH.
type Server struct {
	Config   Config
	Listener net.Listener
	Consoles ConsoleFactory
	Keys     *KeyAuthorizer
	logger   pslog.Logger
}

type authContextKey string

const loginPubKeyOK authContextKey = "login-pubkey-ok"

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Consoles == nil {
		return errors.New("console factory is required for SSH")
	}
	if s.Keys == nil {
		keys, err := NewKeyAuthorizer(s.Config.AuthorizedKeys)
		if err != nil {
			return err
		}
		s.Keys = keys
	}
	signer, err := EnsureHostKey(s.Config.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:             s.Config.Addr,
		Handler:          s.handleSession,
		PublicKeyHandler: s.handlePublicKey,
		IdleTimeout:      s.Config.IdleTimeout,
	}
	if s.Config.TOTPSecret != "" {
		server.KeyboardInteractiveHandler = s.handleKeyboardInteractive
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh server listening", "addr", s.Config.Addr, "authorized_keys", s.Keys.Len(), "totp", s.Config.TOTPSecret != "")

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handlePublicKey accepts listed keys outright unless a TOTP step follows,
// in which case acceptance is recorded and the handshake continues.
func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	fingerprint := ssh.FingerprintSHA256(key)
	log := logx.WithRemote(s.logger, remoteAddr(ctx)).With("user", ctx.User(), "fingerprint", fingerprint)
	if sshSession := ctx.SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ok, err := s.Keys.Authorized(key)
	if err != nil {
		log.Warn("ssh pubkey rejected", "err", err)
		return false
	}
	if !ok {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	log.Info("ssh pubkey accepted")
	if s.Config.TOTPSecret != "" {
		ctx.SetValue(loginPubKeyOK, true)
		return false
	}
	return true
}

func (s *Server) handleKeyboardInteractive(ctx gliderssh.Context, challenger ssh.KeyboardInteractiveChallenge) bool {
	if ctx.Value(loginPubKeyOK) != true {
		return false
	}
	log := logx.WithRemote(s.logger, remoteAddr(ctx)).With("user", ctx.User())
	answers, err := challenger(ctx.User(), "", []string{"Verification code: "}, []bool{false})
	if err != nil {
		log.Warn("ssh totp rejected", "reason", "challenge failed", "err", err)
		return false
	}
	if len(answers) != 1 {
		log.Warn("ssh totp rejected", "reason", "invalid answer count", "count", len(answers))
		return false
	}
	if err := ValidateTOTP(s.Config.TOTPSecret, answers[0]); err != nil {
		log.Warn("ssh totp rejected", "reason", "invalid code")
		return false
	}
	log.Info("ssh totp accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	user := sess.User()
	log := logx.WithRemote(s.logger, sess.RemoteAddr().String()).With("user", user)
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ctx := logx.ContextWithUserLogger(sess.Context(), log, user)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}

	profile := tui.ProfileForTerm(pty.Term, environ(sess.Environ(), "COLORTERM"))
	renderer := tui.NewRenderer(sess, s.Config.Theme, profile)
	engine, err := s.Consoles.NewConsole(ctx, user, renderer)
	if err != nil {
		log.Warn("ssh session rejected", "reason", "console", "err", err)
		_, _ = io.WriteString(sess, "console unavailable: "+err.Error()+"\n")
		_ = sess.Exit(1)
		return
	}
	log.Info("ssh session opened", "term", pty.Term, "console", engine.ID())

	keys := make(chan core.Key, 64)
	go tui.ReadKeys(sess, keys)
	sizes := make(chan core.Size, 1)
	go forwardWindows(ctx, winCh, sizes)
	engine.Resize(core.Size{Width: pty.Window.Width, Height: pty.Window.Height})

	renderer.Screen().EnterAltScreen()
	runErr := engine.Run(ctx, keys, sizes)
	renderer.Screen().ExitAltScreen()
	go func() {
		for range keys {
		}
	}()
	if runErr != nil {
		log.Warn("ssh session failed", "err", runErr)
		_ = sess.Exit(1)
		return
	}
	log.Info("ssh session closed", "term", pty.Term)
	_ = sess.Exit(0)
}

func forwardWindows(ctx context.Context, winCh <-chan gliderssh.Window, sizes chan<- core.Size) {
	defer close(sizes)
	for {
		select {
		case <-ctx.Done():
			return
		case win, ok := <-winCh:
			if !ok {
				return
			}
			select {
			case sizes <- core.Size{Width: win.Width, Height: win.Height}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func environ(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix)
		}
	}
	return ""
}
