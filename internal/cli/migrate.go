package cli

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes for the configured store",
	Long: `migrate applies the schema of the store selected by STORE_BACKEND:
collections and indexes for mongo, tables and partial unique indexes for
postgres and sqlite. It is safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup(cmd.Context())
	if err != nil {
		return err
	}

	b, err := openBackend(cmd.Context(), cfg, log, true)
	if err != nil {
		return err
	}
	defer b.close(log)

	log.Info().Str("backend", cfg.Store.Backend).Msg("migration completed")
	return nil
}
