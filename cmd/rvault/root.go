package main

import (
	"fmt"
	"log/slog"

	"github.com/rvault/rvault/internal/config"
	"github.com/rvault/rvault/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rvault",
		Short: "Authenticated secret vault",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Bind(cmd)
		},
	}
	config.RegisterFlags(root)
	root.AddCommand(newInitCmd(), newOpenCmd(), newRecoverCmd())
	return root
}

func reporterFor(cmd *cobra.Command) (logging.Reporter, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", cfg.LogLevel, err)
	}
	return logging.NewDevlog(level), nil
}
