package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"pkt.systems/gitconsole/internal/appconfig"
	"pkt.systems/gitconsole/internal/persist"
	"pkt.systems/pslog"
)

func newHistoryCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the persisted command history",
	}
	cmd.AddCommand(newHistoryListCmd(cfgPath))
	cmd.AddCommand(newHistoryClearCmd(cfgPath))
	return cmd
}

func openHistory(cmd *cobra.Command, cfgPath string) (*persist.HistoryStore, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Console.HistoryFile) == "" {
		return nil, errors.New("history persistence is disabled (console.history_file is empty)")
	}
	return persist.NewHistoryStoreWithLogger(cfg.Console.HistoryFile, cfg.Console.EngineConfig().HistoryMax, pslog.Ctx(cmd.Context()))
}

func newHistoryListCmd(cfgPath *string) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List remembered commands, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, *cfgPath)
			if err != nil {
				return err
			}
			entries, err := store.Load()
			if err != nil {
				return err
			}
			tbl := table.New("#", "Command").WithWriter(cmd.OutOrStdout()).WithPadding(2)
			for i, entry := range entries {
				if filter != "" && !strings.Contains(entry, filter) {
					continue
				}
				tbl.AddRow(i+1, entry)
			}
			tbl.Print()
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "only show commands containing this text")
	return cmd
}

func newHistoryClearCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget every remembered command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd, *cfgPath)
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", store.Path())
			return err
		},
	}
}
