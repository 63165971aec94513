package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/password"
)

func hashPasswordCmd() *cobra.Command {
	var verify string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `hash-password reads one line from stdin and prints its Argon2id hash
using the default parameters. With --verify it instead checks the line
against an existing Argon2id or bcrypt hash.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password on stdin")
			}
			secret := strings.TrimRight(line, "\r\n")
			if secret == "" {
				return errors.New("password must not be empty")
			}

			pc := gatekeeper.DefaultConfig().Password
			hasher, err := password.NewHasher(password.Config{
				Memory:           pc.Memory,
				Time:             pc.Time,
				Parallelism:      pc.Parallelism,
				SaltLength:       pc.SaltLength,
				KeyLength:        pc.KeyLength,
				MaxPasswordBytes: pc.MaxPasswordBytes,
			})
			if err != nil {
				return err
			}

			if verify != "" {
				ok, err := hasher.Verify(secret, verify)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("password does not match")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}

			hash, err := hasher.Hash(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&verify, "verify", "", "existing hash to check the password against")
	return cmd
}
