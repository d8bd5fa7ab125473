package sitecmd

import (
	"context"

	command "github.com/goliatone/go-command"
	"github.com/tgdscott/DoneCast-sub013/internal/commands"
	"github.com/tgdscott/DoneCast-sub013/internal/sites"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// Observer receives the server response of a successful command.
type Observer func(ctx context.Context, messageType string, result any)

func noopObserver(context.Context, string, any) {}

func newInner[T command.Message](logger interfaces.Logger, operation string, observe Observer, call func(context.Context, T) (any, error), opts []commands.HandlerOption[T]) *commands.Handler[T] {
	if observe == nil {
		observe = noopObserver
	}
	exec := func(ctx context.Context, msg T) error {
		out, err := call(ctx, msg)
		if err != nil {
			return err
		}
		observe(ctx, msg.Type(), out)
		return nil
	}
	handlerOpts := []commands.HandlerOption[T]{
		commands.WithLogger[T](logger),
		commands.WithOperation[T](operation),
	}
	handlerOpts = append(handlerOpts, opts...)
	return commands.NewHandler[T](exec, handlerOpts...)
}

// GenerateSiteHandler runs POST /websites/{podcastId}.
type GenerateSiteHandler struct {
	inner *commands.Handler[GenerateSiteCommand]
}

// NewGenerateSiteHandler constructs a handler wired to the sites API.
func NewGenerateSiteHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[GenerateSiteCommand]) *GenerateSiteHandler {
	call := func(ctx context.Context, msg GenerateSiteCommand) (any, error) {
		return api.GenerateWebsite(ctx, msg.PodcastID, sites.GenerateRequest{Regenerate: msg.Regenerate})
	}
	return &GenerateSiteHandler{inner: newInner(logger, "site.generate", observe, call, opts)}
}

// Execute satisfies command.Commander[GenerateSiteCommand].Execute.
func (h *GenerateSiteHandler) Execute(ctx context.Context, msg GenerateSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UpdateThemeHandler runs PATCH /websites/{podcastId}/css.
type UpdateThemeHandler struct {
	inner *commands.Handler[UpdateThemeCommand]
}

// NewUpdateThemeHandler constructs a handler wired to the sites API.
func NewUpdateThemeHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[UpdateThemeCommand]) *UpdateThemeHandler {
	call := func(ctx context.Context, msg UpdateThemeCommand) (any, error) {
		return api.UpdateCSS(ctx, msg.PodcastID, sites.CSSRequest{CSS: msg.CSS, Generate: msg.Generate})
	}
	return &UpdateThemeHandler{inner: newInner(logger, "site.theme", observe, call, opts)}
}

// Execute satisfies command.Commander[UpdateThemeCommand].Execute.
func (h *UpdateThemeHandler) Execute(ctx context.Context, msg UpdateThemeCommand) error {
	return h.inner.Execute(ctx, msg)
}

// PublishSiteHandler runs POST /websites/{podcastId}/publish.
type PublishSiteHandler struct {
	inner *commands.Handler[PublishSiteCommand]
}

// NewPublishSiteHandler constructs a handler wired to the sites API.
func NewPublishSiteHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[PublishSiteCommand]) *PublishSiteHandler {
	call := func(ctx context.Context, msg PublishSiteCommand) (any, error) {
		return api.Publish(ctx, msg.PodcastID, sites.PublishRequest{Unpublish: msg.Unpublish})
	}
	return &PublishSiteHandler{inner: newInner(logger, "site.publish", observe, call, opts)}
}

// Execute satisfies command.Commander[PublishSiteCommand].Execute.
func (h *PublishSiteHandler) Execute(ctx context.Context, msg PublishSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ResetSiteHandler runs POST /websites/{podcastId}/reset.
type ResetSiteHandler struct {
	inner *commands.Handler[ResetSiteCommand]
}

// NewResetSiteHandler constructs a handler wired to the sites API.
func NewResetSiteHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[ResetSiteCommand]) *ResetSiteHandler {
	call := func(ctx context.Context, msg ResetSiteCommand) (any, error) {
		return api.Reset(ctx, msg.PodcastID, sites.ResetRequest{ConfirmationPhrase: msg.ConfirmationPhrase})
	}
	return &ResetSiteHandler{inner: newInner(logger, "site.reset", observe, call, opts)}
}

// Execute satisfies command.Commander[ResetSiteCommand].Execute.
func (h *ResetSiteHandler) Execute(ctx context.Context, msg ResetSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ReorderSectionsHandler runs PATCH /websites/{podcastId}/sections/order.
type ReorderSectionsHandler struct {
	inner *commands.Handler[ReorderSectionsCommand]
}

// NewReorderSectionsHandler constructs a handler wired to the sites API.
func NewReorderSectionsHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[ReorderSectionsCommand]) *ReorderSectionsHandler {
	call := func(ctx context.Context, msg ReorderSectionsCommand) (any, error) {
		return api.PatchOrder(ctx, msg.PodcastID, msg.Order)
	}
	return &ReorderSectionsHandler{inner: newInner(logger, "site.sections.reorder", observe, call, opts)}
}

// Execute satisfies command.Commander[ReorderSectionsCommand].Execute.
func (h *ReorderSectionsHandler) Execute(ctx context.Context, msg ReorderSectionsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ToggleSectionHandler runs PATCH /websites/{podcastId}/sections/{id}/toggle.
type ToggleSectionHandler struct {
	inner *commands.Handler[ToggleSectionCommand]
}

// NewToggleSectionHandler constructs a handler wired to the sites API.
func NewToggleSectionHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[ToggleSectionCommand]) *ToggleSectionHandler {
	call := func(ctx context.Context, msg ToggleSectionCommand) (any, error) {
		return api.PatchToggle(ctx, msg.PodcastID, msg.SectionID, msg.Enabled)
	}
	return &ToggleSectionHandler{inner: newInner(logger, "site.sections.toggle", observe, call, opts)}
}

// Execute satisfies command.Commander[ToggleSectionCommand].Execute.
func (h *ToggleSectionHandler) Execute(ctx context.Context, msg ToggleSectionCommand) error {
	return h.inner.Execute(ctx, msg)
}

// PatchSectionConfigHandler runs PATCH /websites/{podcastId}/sections/{id}/config.
type PatchSectionConfigHandler struct {
	inner *commands.Handler[PatchSectionConfigCommand]
}

// NewPatchSectionConfigHandler constructs a handler wired to the sites API.
func NewPatchSectionConfigHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[PatchSectionConfigCommand]) *PatchSectionConfigHandler {
	call := func(ctx context.Context, msg PatchSectionConfigCommand) (any, error) {
		return api.PatchConfig(ctx, msg.PodcastID, msg.SectionID, msg.Config)
	}
	return &PatchSectionConfigHandler{inner: newInner(logger, "site.sections.config", observe, call, opts)}
}

// Execute satisfies command.Commander[PatchSectionConfigCommand].Execute.
func (h *PatchSectionConfigHandler) Execute(ctx context.Context, msg PatchSectionConfigCommand) error {
	return h.inner.Execute(ctx, msg)
}

// PreviewSiteHandler runs GET /sites/{subdomain}/preview.
type PreviewSiteHandler struct {
	inner *commands.Handler[PreviewSiteCommand]
}

// NewPreviewSiteHandler constructs a handler wired to the sites API.
func NewPreviewSiteHandler(api interfaces.SitesAPI, logger interfaces.Logger, observe Observer, opts ...commands.HandlerOption[PreviewSiteCommand]) *PreviewSiteHandler {
	call := func(ctx context.Context, msg PreviewSiteCommand) (any, error) {
		return api.Preview(ctx, msg.Subdomain)
	}
	return &PreviewSiteHandler{inner: newInner(logger, "site.preview", observe, call, opts)}
}

// Execute satisfies command.Commander[PreviewSiteCommand].Execute.
func (h *PreviewSiteHandler) Execute(ctx context.Context, msg PreviewSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}
