// Package config assembles rvault's CLI configuration the way this
// corpus's server does: cobra-bound flags merged with environment
// variables through viper. No config file is read.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved configuration for one CLI invocation.
type Config struct {
	ServerURL string
	Cipher    string
	NoAuth    bool
	LogLevel  string
}

// RegisterFlags declares the flags common to every rvault subcommand.
// It must run at command construction time, before cobra parses the
// command line, which is why it is separate from Bind.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("server", "s", "", "key server URL (or set RVAULT_SERVER)")
	cmd.PersistentFlags().String("cipher", "", "cipher to use for a new vault")
	cmd.PersistentFlags().Bool("noauth", false, "use the passphrase-derived key directly, with no server round-trip")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
}

// Bind wires the already-parsed flags on cmd, plus the RVAULT_SERVER
// environment variable, through viper. It runs in PersistentPreRunE,
// after cobra has parsed the command line.
func Bind(cmd *cobra.Command) error {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("rvault")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// RVAULT_SERVER maps directly onto the --server flag.
	if err := v.BindEnv("server", "RVAULT_SERVER"); err != nil {
		return fmt.Errorf("bind RVAULT_SERVER: %w", err)
	}

	cmd.SetContext(withViper(cmd.Context(), v))
	return nil
}

// Load resolves the Config for cmd, after Bind has run on it or a
// parent command.
func Load(cmd *cobra.Command) (*Config, error) {
	v := viperFrom(cmd.Context())
	if v == nil {
		return nil, fmt.Errorf("config not bound on this command")
	}
	return &Config{
		ServerURL: v.GetString("server"),
		Cipher:    v.GetString("cipher"),
		NoAuth:    v.GetBool("noauth"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
