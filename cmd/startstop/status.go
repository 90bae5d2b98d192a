package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/startstop/internal/cliconfig"
	"github.com/bft-labs/startstop/pkg/observer"
)

func newStatusCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the last recorded state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cfg, *cfgPath, changedFlags(cmd)); err != nil {
				return err
			}

			sf := observer.NewStatusFile(cfg.StateDir, nil)
			rec, err := sf.Load()
			if err != nil {
				return fmt.Errorf("read status: %w", err)
			}
			printStatus(cmd, sf.Path(), rec)
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, path string, rec observer.Record) {
	out := cmd.OutOrStdout()
	if rec.Service == "" {
		fmt.Fprintf(out, "no status recorded in %s\n", path)
		return
	}

	fmt.Fprintf(out, "%s: %s (from %s, %s at %s)\n",
		rec.Service, rec.State, rec.Previous, rec.Reason, rec.At.Format(time.RFC3339))
	if rec.Error != "" {
		fmt.Fprintf(out, "error: %s\n", rec.Error)
	}
}
