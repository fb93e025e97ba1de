package main

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("gitconsole command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var dir string
	root := &cobra.Command{
		Use:           "gitconsole [dir]",
		Short:         "Interactive console for git with a live repository prompt",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				dir = args[0]
			}
			return runConsole(cmd, cfgPath, dir)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	root.AddCommand(newRunCmd(&cfgPath))
	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newHistoryCmd(&cfgPath))
	root.AddCommand(newConfigCmd(&cfgPath))
	root.AddCommand(newTOTPCmd())
	root.AddCommand(newVersionCmd())

	return root
}
