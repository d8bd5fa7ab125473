package sitecmd

import (
	"errors"

	"github.com/tgdscott/DoneCast-sub013/internal/commands"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// RegistrationOptions configures where the site handlers are registered.
type RegistrationOptions struct {
	Registry       commands.CommandRegistry
	Dispatcher     commands.CommandDispatcher
	LoggerProvider interfaces.LoggerProvider
	Observer       Observer
}

// Handlers groups every site command handler.
type Handlers struct {
	Generate      *GenerateSiteHandler
	Theme         *UpdateThemeHandler
	Publish       *PublishSiteHandler
	Reset         *ResetSiteHandler
	Reorder       *ReorderSectionsHandler
	Toggle        *ToggleSectionHandler
	Config        *PatchSectionConfigHandler
	Preview       *PreviewSiteHandler
	Subscriptions []commands.CommandSubscription
}

// All lists the handlers in registration order.
func (h *Handlers) All() []any {
	if h == nil {
		return nil
	}
	return []any{h.Generate, h.Theme, h.Publish, h.Reset, h.Reorder, h.Toggle, h.Config, h.Preview}
}

// Close releases dispatcher subscriptions.
func (h *Handlers) Close() {
	if h == nil {
		return
	}
	for _, sub := range h.Subscriptions {
		sub.Unsubscribe()
	}
	h.Subscriptions = nil
}

// Register builds the site handlers over api and registers them with the
// configured registry and dispatcher. Registration errors are joined; the
// handlers are returned regardless.
func Register(api interfaces.SitesAPI, opts RegistrationOptions) (*Handlers, error) {
	if api == nil {
		return &Handlers{}, nil
	}
	logger := commands.CommandLogger(opts.LoggerProvider, "site")
	observe := opts.Observer
	handlers := &Handlers{
		Generate: NewGenerateSiteHandler(api, logger, observe),
		Theme:    NewUpdateThemeHandler(api, logger, observe),
		Publish:  NewPublishSiteHandler(api, logger, observe),
		Reset:    NewResetSiteHandler(api, logger, observe),
		Reorder:  NewReorderSectionsHandler(api, logger, observe),
		Toggle:   NewToggleSectionHandler(api, logger, observe),
		Config:   NewPatchSectionConfigHandler(api, logger, observe),
		Preview:  NewPreviewSiteHandler(api, logger, observe),
	}

	var errs error
	for _, handler := range handlers.All() {
		if opts.Registry != nil {
			if err := opts.Registry.RegisterCommand(handler); err != nil {
				errs = errors.Join(errs, err)
			}
		}
		if opts.Dispatcher != nil {
			sub, err := opts.Dispatcher.RegisterCommand(handler)
			if err != nil {
				errs = errors.Join(errs, err)
			} else if sub != nil {
				handlers.Subscriptions = append(handlers.Subscriptions, sub)
			}
		}
	}
	return handlers, errs
}
