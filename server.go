// Package gitconsole wires the console engine to its git, completion,
// history and terminal collaborators, and serves it locally or over SSH.
package gitconsole

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/internal/appconfig"
	"pkt.systems/gitconsole/internal/gitcomplete"
	"pkt.systems/gitconsole/internal/gitstatus"
	"pkt.systems/gitconsole/internal/launcher"
	"pkt.systems/gitconsole/internal/logx"
	"pkt.systems/gitconsole/internal/persist"
	"pkt.systems/gitconsole/schema"
	"pkt.systems/gitconsole/sshserver"
	"pkt.systems/pslog"
)

// Consoles holds the collaborators shared by every console engine in the
// process and builds engines on demand.
type Consoles struct {
	cfg         schema.ConsoleConfig
	status      *gitstatus.Provider
	watcher     *gitstatus.Watcher
	completion  *gitcomplete.Provider
	credentials *gitstatus.CredentialChecker
	terminal    *launcher.Launcher
	history     *persist.HistoryStore
	log         pslog.Logger

	closeOnce sync.Once
}

// NewConsoles builds the shared collaborators from the console config.
func NewConsoles(cfg appconfig.ConsoleConfig, logger pslog.Logger) (*Consoles, error) {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	engineCfg, err := schema.NormalizeConsoleConfig(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	c := &Consoles{
		cfg:         engineCfg,
		status:      gitstatus.NewProvider(cfg.StatusTTL(), logger),
		credentials: gitstatus.NewCredentialChecker(logger),
		log:         logger,
	}
	completion, err := gitcomplete.LoadProvider(cfg.CompletionFile, gitcomplete.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.completion = completion
	terminal, err := launcher.New(cfg.TerminalCommand, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.terminal = terminal
	if strings.TrimSpace(cfg.HistoryFile) != "" {
		history, err := persist.NewHistoryStoreWithLogger(cfg.HistoryFile, engineCfg.HistoryMax, logger)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.history = history
	}
	if cfg.Watch {
		watcher, err := gitstatus.NewWatcher(gitstatus.WatcherOptions{
			OnChange: c.status.InvalidateRoot,
			Logger:   logger,
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.watcher = watcher
	}
	return c, nil
}

// Config returns the normalized engine config.
func (c *Consoles) Config() schema.ConsoleConfig {
	return c.cfg
}

// History returns the shared history store, or nil when persistence is off.
func (c *Consoles) History() *persist.HistoryStore {
	return c.history
}

// NewConsole builds an engine drawing onto renderer. A non-empty user marks
// a remote console: its log entries carry the user and it gets no terminal
// launcher, since a window would open on the server host.
func (c *Consoles) NewConsole(ctx context.Context, user string, renderer core.Renderer) (*core.Engine, error) {
	log := c.log
	if user != "" {
		log = logx.WithUser(ctx, user)
	}
	deps := core.EngineDeps{
		Status:      c.status,
		Options:     c.completion,
		Credentials: c.credentials,
		Renderer:    renderer,
		Logger:      log,
	}
	if user == "" {
		deps.Terminal = c.terminal
	}
	if c.watcher != nil {
		deps.Watcher = c.watcher
	}
	if c.history != nil {
		deps.History = c.history
	}
	return core.NewEngine(c.cfg, deps)
}

// Close stops the watcher and the status cache.
func (c *Consoles) Close() {
	c.closeOnce.Do(func() {
		if c.watcher != nil {
			if err := c.watcher.Close(); err != nil {
				c.log.Warn("watcher close failed", "err", err)
			}
		}
		c.status.Close()
	})
}

// Server serves consoles over SSH.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the SSH compositor.
type ServerConfig struct {
	SSH sshserver.Config
}

// New constructs the SSH compositor around consoles.
func New(cfg ServerConfig, consoles *Consoles) (Server, error) {
	if consoles == nil {
		return nil, errors.New("consoles are required")
	}
	if strings.TrimSpace(cfg.SSH.Addr) == "" {
		return nil, errors.New("ssh address is required")
	}
	if cfg.SSH.Theme == "" {
		cfg.SSH.Theme = consoles.cfg.Theme
	}
	return &compositeServer{
		cfg:      cfg,
		consoles: consoles,
		sshSrv: &sshserver.Server{
			Config:   cfg.SSH,
			Consoles: consoles,
		},
	}, nil
}

type compositeServer struct {
	cfg      ServerConfig
	consoles *Consoles
	sshSrv   *sshserver.Server
	logger   pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info("server start", "ssh_addr", s.cfg.SSH.Addr, "watch", s.consoles.watcher != nil, "history", s.consoles.history != nil)
	go func() {
		if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
			log.Error("ssh server failed", "err", err)
			s.errCh <- err
		}
	}()
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	s.consoles.Close()
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}
