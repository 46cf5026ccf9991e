package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilancio/internal/app"
	"bilancio/internal/cli"
	"bilancio/internal/log"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg, cmd.ErrOrStderr(), log.ComponentStorage)

			res, err := app.Migrate(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", cfg.DataBackend, err)
			}
			if res.Dirty {
				return fmt.Errorf("%s schema is dirty at version %d", res.Backend, res.Version)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date (version %d)\n", res.Backend, res.Version)
			return nil
		},
	}
}
