package main

import (
	"os"

	"github.com/rvault/rvault"
	"github.com/spf13/cobra"
)

func newRecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover <path> <recovery-file>",
		Short: "Open a vault from a recovery blob, bypassing the passphrase and key server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			v, err := rvault.OpenByRecovery(args[0], blob)
			if err != nil {
				return err
			}
			defer v.Close()
			return runShell(v)
		},
	}
	return cmd
}
