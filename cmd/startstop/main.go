package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/startstop/internal/cliconfig"
)

const helpDescription = `
Run a status listener under the start/stop coordinator.

Highlights:
  - Start and stop requests are merged: the listener is opened or closed at
    most once per transition, and the last request wins.
  - A failed open or close parks the service in an error state for good.
  - Every transition is logged, written to status.json and optionally
    POSTed to a webhook.
  - Configure via file, env (STARTSTOP_*), or flags. With --watch, editing
    the config file's addr restarts the listener on the new address.
`

var exampleUsage = strings.TrimSpace(`
  startstop --addr :8080
  startstop --config $HOME/.startstop/config.toml --watch
  startstop --webhook-url https://ops.example.com/hooks/lifecycle --auth-token <token>
  startstop status
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger("info")

	root := &cobra.Command{
		Use:          "startstop",
		Short:        "Run a status listener under the start/stop coordinator",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := changedFlags(cmd)
			cfgFile, err := loadConfig(&cfg, cfgPath, changed)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cfgFile, changed)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.startstop/config.toml)")
	root.PersistentFlags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for status.json (default: $HOME/.startstop)")

	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "service name used in logs and events")
	root.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "listener address")
	root.Flags().StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "URL receiving a POST per state change (optional)")
	root.Flags().StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "bearer token for the webhook")
	root.Flags().IntVar(&cfg.WebhookAttempts, "webhook-attempts", cfg.WebhookAttempts, "delivery attempts per webhook event")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "webhook HTTP timeout")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "restart on config file changes")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "start, stop and exit")

	root.AddCommand(newStatusCmd(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("startstop")
		os.Exit(1)
	}
}

// changedFlags returns the set of flags given on the command line.
func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	return changed
}

// loadConfig applies the config file (default $HOME/.startstop/config.toml)
// and STARTSTOP_* variables under the flags in changed, then validates cfg.
// It returns the config file path if one was read.
func loadConfig(cfg *cliconfig.Config, cfgPath string, changed map[string]bool) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else if cfgPath != "" {
		return "", fmt.Errorf("config file %s not found", cfgPath)
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", fmt.Errorf("load env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}
