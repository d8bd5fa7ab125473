package main

import (
	"github.com/spf13/cobra"

	"github.com/tgdscott/DoneCast-sub013/internal/di"
)

func newRootCommand(opts []di.Option) *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags, opts)

	rootCmd := &cobra.Command{
		Use:           "sitebuilder",
		Short:         "Compose, preview and publish podcast websites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.baseURL, "api", "", "Sites API base URL (overrides api.base_url)")
	rootCmd.PersistentFlags().StringVar(&flags.token, "token", "", "Bearer token (overrides api.token)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newSectionsCommand(ctx))
	rootCmd.AddCommand(newSectionCommand(ctx))
	for _, cmd := range newSiteCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}
