package main

import (
	"errors"

	"github.com/spf13/cobra"

	sitebuilder "github.com/tgdscott/DoneCast-sub013"
	"github.com/tgdscott/DoneCast-sub013/internal/logging"
)

var errMemoryStorage = errors.New("migrate: storage driver is memory; nothing to migrate")

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := ctx.newModule(func(cfg *sitebuilder.Config) { cfg.Storage.AutoMigrate = false })
			if err != nil {
				return err
			}
			defer module.Close()
			if err := module.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			db := module.Container().BunDB()
			if db == nil {
				return errMemoryStorage
			}
			logger := logging.ModuleLogger(module.Container().LoggerProvider(), "sitebuilder.migrations")

			var names []string
			if rollback {
				names, err = sitebuilder.Rollback(cmd.Context(), db, logger)
			} else {
				names, err = sitebuilder.Migrate(cmd.Context(), db, logger)
			}
			if err != nil {
				return err
			}
			if names == nil {
				names = []string{}
			}
			return writeJSON(cmd, map[string]any{"rollback": rollback, "migrations": names})
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Roll back the most recent migration group")
	return cmd
}
