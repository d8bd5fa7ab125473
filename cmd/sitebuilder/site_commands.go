package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sitebuilder "github.com/tgdscott/DoneCast-sub013"
	sitecmd "github.com/tgdscott/DoneCast-sub013/internal/commands/site"
)

func newSiteCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newGenerateCommand(ctx, "generate", "Create the website for a podcast", false),
		newGenerateCommand(ctx, "regenerate", "Rebuild the sections and theme of an existing website", true),
		newThemeCommand(ctx),
		newPublishCommand(ctx, "publish", "Publish a website", false),
		newPublishCommand(ctx, "unpublish", "Move a published website back to draft", true),
		newResetCommand(ctx),
		newPreviewCommand(ctx),
	}
}

func newGenerateCommand(ctx *commandContext, use, short string, regenerate bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <podcast-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Generate.Execute(cmd.Context(), sitecmd.GenerateSiteCommand{PodcastID: args[0], Regenerate: regenerate})
			})
		},
	}
}

func newThemeCommand(ctx *commandContext) *cobra.Command {
	var cssFile string
	var generate bool
	cmd := &cobra.Command{
		Use:   "theme <podcast-id>",
		Short: "Replace the global CSS or generate a fresh theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := sitecmd.UpdateThemeCommand{PodcastID: args[0], Generate: generate}
			if cssFile != "" {
				data, err := os.ReadFile(cssFile)
				if err != nil {
					return fmt.Errorf("read css: %w", err)
				}
				css := string(data)
				msg.CSS = &css
			}
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Theme.Execute(cmd.Context(), msg)
			})
		},
	}
	cmd.Flags().StringVar(&cssFile, "css", "", "Path to a stylesheet to store verbatim")
	cmd.Flags().BoolVar(&generate, "generate", false, "Ask the server for a new theme variant")
	return cmd
}

func newPublishCommand(ctx *commandContext, use, short string, unpublish bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <podcast-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Publish.Execute(cmd.Context(), sitecmd.PublishSiteCommand{PodcastID: args[0], Unpublish: unpublish})
			})
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var phrase string
	cmd := &cobra.Command{
		Use:   "reset <podcast-id>",
		Short: "Discard a website and recreate it from defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Reset.Execute(cmd.Context(), sitecmd.ResetSiteCommand{PodcastID: args[0], ConfirmationPhrase: phrase})
			})
		},
	}
	cmd.Flags().StringVar(&phrase, "phrase", "", "Confirmation phrase, typed verbatim")
	_ = cmd.MarkFlagRequired("phrase")
	return cmd
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <subdomain>",
		Short: "Print the preview snapshot served for a subdomain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Preview.Execute(cmd.Context(), sitecmd.PreviewSiteCommand{Subdomain: args[0]})
			})
		},
	}
}
