package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/gitconsole"
	"pkt.systems/gitconsole/internal/appconfig"
	"pkt.systems/gitconsole/internal/logx"
	"pkt.systems/gitconsole/schema"
	"pkt.systems/gitconsole/sshserver"
	"pkt.systems/pslog"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve git consoles over SSH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.SSH.Addr = addr
			}
			logger, closer := logx.New(cfg.Logging, os.Stderr)
			defer func() { _ = closer.Close() }()
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)

			consoles, err := gitconsole.NewConsoles(cfg.Console, logger)
			if err != nil {
				return err
			}
			server, err := gitconsole.New(gitconsole.ServerConfig{SSH: toSSHConfig(cfg)}, consoles)
			if err != nil {
				consoles.Close()
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides ssh.addr")
	return cmd
}

func toSSHConfig(cfg appconfig.Config) sshserver.Config {
	return sshserver.Config{
		Addr:           cfg.SSH.Addr,
		HostKeyPath:    cfg.SSH.HostKeyPath,
		AuthorizedKeys: cfg.SSH.AuthorizedKeys,
		TOTPSecret:     cfg.SSH.TOTPSecret,
		IdleTimeout:    cfg.SSH.IdleTimeout(),
		Theme:          schema.ThemeName(cfg.Console.Theme),
	}
}
