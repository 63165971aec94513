package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/internal/config"
	"github.com/MrEthical07/gatekeeper/userstore"
)

var errNeedsPostgres = errors.New("database.type must be postgres")

func migrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL user schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Type != "postgres" {
				return errNeedsPostgres
			}

			store, err := userstore.NewPostgres(cmd.Context(), cfg.Database.Postgres.URL)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func setRoleCmd(root *rootOptions) *cobra.Command {
	var identifier, role string

	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of an existing account",
		Long: `set-role updates the stored role of an account. The change applies to the
account's next authenticated request; issued tokens are not reissued.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := gatekeeper.DefaultRoles()[role]; !ok {
				return fmt.Errorf("unknown role %q", role)
			}

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Type != "postgres" {
				return errNeedsPostgres
			}

			store, err := userstore.NewPostgres(cmd.Context(), cfg.Database.Postgres.URL)
			if err != nil {
				return err
			}
			defer store.Close()

			user, err := store.GetUserByIdentifier(cmd.Context(), gatekeeper.NormalizeIdentifier(identifier))
			if err != nil {
				return err
			}
			if err := store.SetRole(cmd.Context(), user.ID, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Identifier, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&identifier, "identifier", "", "account identifier (email)")
	cmd.Flags().StringVar(&role, "role", "", "new role")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
