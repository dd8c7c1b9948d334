package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/pkg/logger"
)

// cli carries state shared by every subcommand once the root has run.
type cli struct {
	cfg *config.Config
	log logger.Logger
}

// newRootCmd creates the top-level "pulse" command. Configuration is loaded
// once before any subcommand runs; serve logs to stdout, the one-shot
// commands log to stderr so stdout stays JSON.
func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "pulse",
		Short:         "Behavioral scoring and intervention engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.ErrOrStderr()
			if cmd.Name() == "serve" {
				out = cmd.OutOrStdout()
			}
			if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(out)); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			c.log = logger.Get()
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				c.log.Warn(cmd.Context(), "invalid log_level; falling back to info",
					logger.String("log_level", cfg.LogLevel), logger.Error(err))
				_ = logger.SetLevelString("info")
			}
			c.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(c),
		newScoreCmd(c),
		newHistoryCmd(c),
		newInterventionsCmd(c),
		newSeedCmd(c),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
