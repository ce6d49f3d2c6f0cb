package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rvault/rvault"
	"github.com/rvault/rvault/internal/config"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var uidHex string
	var authParams string

	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Create a new vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			reporter, err := reporterFor(cmd)
			if err != nil {
				return err
			}
			if uidHex == "" {
				uidHex = uuid.New().String()
			}
			passphrase, err := promptPassphrase("Vault passphrase: ")
			if err != nil {
				return err
			}
			opts := rvault.InitOptions{
				Path:       args[0],
				ServerURL:  cfg.ServerURL,
				Passphrase: passphrase,
				UIDHex:     uidHex,
				Cipher:     cfg.Cipher,
				NoAuth:     cfg.NoAuth,
				AuthParams: authParams,
				Reporter:   reporter,
			}
			if err := rvault.Init(context.Background(), opts); err != nil {
				return err
			}
			fmt.Printf("vault initialized: %s (uid %s)\n", args[0], uidHex)
			return nil
		},
	}
	cmd.Flags().StringVar(&uidHex, "uid", "", "vault identifier (uuid); random if omitted")
	cmd.Flags().StringVar(&authParams, "auth-params", "", "opaque setup material forwarded to the key server (e.g. a TOTP secret)")
	return cmd
}
