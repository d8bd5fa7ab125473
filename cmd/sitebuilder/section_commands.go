package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	sitebuilder "github.com/tgdscott/DoneCast-sub013"
	sitecmd "github.com/tgdscott/DoneCast-sub013/internal/commands/site"
	"github.com/tgdscott/DoneCast-sub013/internal/sections"
)

func newSectionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the section definition catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := ctx.newModule(nil)
			if err != nil {
				return err
			}
			defer module.Close()
			api, err := module.Client()
			if err != nil {
				return err
			}
			defs, err := sections.NewRegistry(api).Load(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, defs)
		},
	}
}

func newSectionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Edit the sections of a website",
	}
	cmd.AddCommand(newSectionOrderCommand(ctx))
	cmd.AddCommand(newSectionToggleCommand(ctx))
	cmd.AddCommand(newSectionConfigCommand(ctx))
	cmd.AddCommand(newSectionAddCommand(ctx))
	cmd.AddCommand(newSectionRemoveCommand(ctx))
	return cmd
}

func newSectionOrderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "order <podcast-id> <section-id>...",
		Short: "Replace the section order",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Reorder.Execute(cmd.Context(), sitecmd.ReorderSectionsCommand{PodcastID: args[0], Order: args[1:]})
			})
		},
	}
}

func newSectionToggleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <podcast-id> <section-id> <true|false>",
		Short: "Enable or disable a section",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[2])
			if err != nil {
				return fmt.Errorf("enabled must be true or false: %w", err)
			}
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Toggle.Execute(cmd.Context(), sitecmd.ToggleSectionCommand{PodcastID: args[0], SectionID: args[1], Enabled: enabled})
			})
		},
	}
}

func newSectionConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "config <podcast-id> <section-id> <json>",
		Short: "Replace the config of a section",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var config map[string]any
			if err := json.Unmarshal([]byte(args[2]), &config); err != nil {
				return fmt.Errorf("config must be a JSON object: %w", err)
			}
			return ctx.withHandlers(cmd, func(h *sitebuilder.CommandHandlers) error {
				return h.Config.Execute(cmd.Context(), sitecmd.PatchSectionConfigCommand{PodcastID: args[0], SectionID: args[1], Config: config})
			})
		},
	}
}

// Adding and removing sections go through a builder session so definition
// defaults and header/footer placement match the interactive builder.
func newSectionAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <podcast-id> <definition-id>",
		Short: "Add a section with its default config",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(session *sitebuilder.Session) error {
				return session.AddSection(cmd.Context(), args[1])
			})
		},
	}
}

func newSectionRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <podcast-id> <section-id>",
		Short: "Remove a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, args[0], func(session *sitebuilder.Session) error {
				return session.DeleteSection(cmd.Context(), args[1])
			})
		},
	}
}

func (c *commandContext) withSession(cmd *cobra.Command, podcastID string, fn func(*sitebuilder.Session) error) error {
	module, err := c.newModule(func(cfg *sitebuilder.Config) { cfg.Builder.AutoPreview = false })
	if err != nil {
		return err
	}
	defer module.Close()
	session, err := module.Session(podcastID)
	if err != nil {
		return err
	}
	defer session.Close()
	if err := session.Mount(cmd.Context()); err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	return writeJSON(cmd, session.Store().State())
}
