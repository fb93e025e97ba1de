package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/gitconsole"
	"pkt.systems/gitconsole/core"
	"pkt.systems/gitconsole/internal/appconfig"
	"pkt.systems/gitconsole/internal/logx"
	"pkt.systems/gitconsole/internal/tui"
	"pkt.systems/pslog"
)

func newRunCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run [dir]",
		Short: "Open a console on this terminal (the default command)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runConsole(cmd, *cfgPath, dir)
		},
	}
}

// runConsole runs one console on the controlling terminal.
func runConsole(cmd *cobra.Command, cfgPath, dir string) error {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return err
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		cfg.Console.WorkingDir = abs
	} else if cwd, err := os.Getwd(); err == nil {
		cfg.Console.WorkingDir = cwd
	}

	in, out := os.Stdin, os.Stdout
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("gitconsole needs an interactive terminal; use serve for remote access")
	}

	// The alternate screen owns stderr, so file logging or nothing.
	logger, closer := logx.New(cfg.Logging, io.Discard)
	defer func() { _ = closer.Close() }()
	ctx := pslog.ContextWithLogger(cmd.Context(), logger)

	consoles, err := gitconsole.NewConsoles(cfg.Console, logger)
	if err != nil {
		return err
	}
	defer consoles.Close()

	renderer := tui.NewRenderer(out, consoles.Config().Theme, tui.ProfileForTerm(os.Getenv("TERM"), os.Getenv("COLORTERM")))
	engine, err := consoles.NewConsole(ctx, "", renderer)
	if err != nil {
		return err
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer func() { _ = term.Restore(fd, state) }()
	renderer.Screen().EnterAltScreen()
	defer renderer.Screen().ExitAltScreen()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if width, height, err := term.GetSize(int(out.Fd())); err == nil {
		engine.Resize(core.Size{Width: width, Height: height})
	}
	keys := make(chan core.Key, 64)
	go tui.ReadKeys(in, keys)
	sizes := make(chan core.Size, 1)
	go watchSize(ctx, int(out.Fd()), sizes)

	return engine.Run(ctx, keys, sizes)
}
