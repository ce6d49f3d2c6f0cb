package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rvault/rvault"
	"github.com/rvault/rvault/internal/config"
	"github.com/spf13/cobra"
)

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a vault and drop into an interactive shell",
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
			passphrase, err := promptPassphrase("Vault passphrase: ")
			if err != nil {
				return err
			}
			var totp string
			if !cfg.NoAuth {
				totp, err = promptPassphrase("TOTP code: ")
				if err != nil {
					return err
				}
			}
			v, err := rvault.Open(context.Background(), rvault.OpenOptions{
				Path:       args[0],
				ServerURL:  cfg.ServerURL,
				Passphrase: passphrase,
				TOTP:       totp,
				Reporter:   reporter,
			})
			if err != nil {
				return err
			}
			defer v.Close()
			return runShell(v)
		},
	}
	return cmd
}

// runShell implements a line-oriented shell over an open vault: ls,
// cat, put, rm and exit. cat, put and rm take a logical path argument,
// ls takes an optional one (default "/"), and put also reads its
// content from stdin up to a blank line.
func runShell(v *rvault.Vault) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("rvault> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			fmt.Print("rvault> ")
			continue
		}
		switch fields[0] {
		case "exit", "quit":
			return nil
		case "ls":
			dir := "/"
			if len(fields) > 1 {
				dir = fields[1]
			}
			err := v.IterDir(dir, func(name string) error {
				fmt.Println(name)
				return nil
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "cat":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: cat <path>")
				break
			}
			data, err := v.ReadFile(fields[1])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				break
			}
			os.Stdout.Write(data)
			fmt.Println()
		case "put":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: put <path> (content read from stdin until a blank line)")
				break
			}
			var sb strings.Builder
			for scanner.Scan() {
				l := scanner.Text()
				if l == "" {
					break
				}
				sb.WriteString(l)
				sb.WriteByte('\n')
			}
			if err := v.WriteFile(fields[1], []byte(sb.String())); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case "rm":
			if len(fields) < 2 {
				fmt.Fprintln(os.Stderr, "usage: rm <path>")
				break
			}
			if err := v.DeleteFile(fields[1]); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (try ls, cat, put, rm, exit)\n", fields[0])
		}
		fmt.Print("rvault> ")
	}
	return scanner.Err()
}
