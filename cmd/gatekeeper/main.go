// Command gatekeeper runs the authentication service and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "gatekeeper",
		Short: "Authentication, authorization and rate limiting service",
		Long: `gatekeeper issues and verifies access tokens, enforces role and
permission checks, and rate limits requests per client address.

Configuration is read from config.yaml (or --config) and overridden by
GATEKEEPER_* environment variables, e.g. GATEKEEPER_AUTH_JWT_SECRET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(
		serveCmd(opts),
		migrateCmd(opts),
		setRoleCmd(opts),
		hashPasswordCmd(),
		loadtestCmd(),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gatekeeper %s (%s)\n", version, commit)
		},
	}
}
