package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flashdeck/internal/account"
	"flashdeck/internal/auth"
	"flashdeck/internal/config"
	"flashdeck/internal/db"
	"flashdeck/internal/deck"
	"flashdeck/internal/fixture"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, config.MigrateFields)
			if err != nil {
				return err
			}
			gdb, err := db.Connect(a.cfg.DatabaseURL, a.log)
			if err != nil {
				return err
			}
			if err := db.AutoMigrateAndIndexes(gdb); err != nil {
				return err
			}
			a.log.Info("schema up to date")
			return nil
		},
	}
}

// harness wires the fixture harness to the hosted backend with the
// service-role key.
func (a *app) harness() (*fixture.Harness, error) {
	gdb, err := db.Connect(a.cfg.DatabaseURL, a.log)
	if err != nil {
		return nil, err
	}
	provider := auth.NewProvider(a.cfg.BackendURL, a.cfg.BackendKey, a.cfg.ServiceRoleKey)
	decks := &deck.Service{DB: gdb}
	accounts := &account.Service{DB: gdb}
	return &fixture.Harness{
		Admin: provider,
		Purger: &account.Purger{
			Decks:    decks,
			Accounts: accounts,
			Users:    provider,
			Log:      a.log.Named("purge"),
		},
		Decks:    decks,
		Accounts: accounts,
		Log:      a.log.Named("fixture"),
	}, nil
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <user-id>...",
		Short: "Delete users and everything they own",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				if _, err := uuid.Parse(id); err != nil {
					return errors.Errorf("invalid user id %q", id)
				}
			}
			a, err := setup(cmd, config.CleanupFields)
			if err != nil {
				return err
			}
			h, err := a.harness()
			if err != nil {
				return err
			}
			if failed := h.Purger.PurgeAll(cmd.Context(), args); failed > 0 {
				return errors.Errorf("%d of %d users could not be cleaned up", failed, len(args))
			}
			a.log.Info("cleanup complete", zap.Int("users", len(args)))
			return nil
		},
	}
}

func newTeardownCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Delete every deck and every preferences row",
		Long: `Delete every deck (with its attribute types, cards and values) and every
user preferences row, regardless of owner. Meant for test databases.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("teardown deletes all data; pass --yes to confirm")
			}
			a, err := setup(cmd, config.CleanupFields)
			if err != nil {
				return err
			}
			h, err := a.harness()
			if err != nil {
				return err
			}
			return h.Teardown(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all data")
	return cmd
}

func newSeedUserCmd() *cobra.Command {
	var opts fixture.TestUser
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a confirmed user for testing and print its credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, config.CleanupFields)
			if err != nil {
				return err
			}
			h, err := a.harness()
			if err != nil {
				return err
			}
			u, err := h.CreateUser(cmd.Context(), opts)
			if err != nil {
				return err
			}
			a.log.Info("user created", zap.String("user_id", u.ID), zap.String("email", u.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "id:       %s\nemail:    %s\npassword: %s\n", u.ID, u.Email, u.Password)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Email, "email", "", "email (default user-<id>@test.com)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (default password0)")
	return cmd
}
