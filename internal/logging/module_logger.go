package logging

import (
	"context"
	"strings"

	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

const (
	rootModule       = "sitebuilder"
	reconcileModule  = "sitebuilder.reconcile"
	generationModule = "sitebuilder.generation"
	publishModule    = "sitebuilder.publish"
	previewModule    = "sitebuilder.preview"
	httpModule       = "sitebuilder.http"
	websitesModule   = "sitebuilder.websites"
	commandsModule   = "sitebuilder.commands"
)

const (
	fieldPodcastID = "podcast_id"
	fieldSectionID = "section_id"
	fieldOperation = "operation"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The module identifier is attached
// as a structured field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// ReconcileLogger returns the logger namespace reserved for optimistic mutations.
func ReconcileLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, reconcileModule)
}

// GenerationLogger returns the logger namespace reserved for generation runs.
func GenerationLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, generationModule)
}

// PublishLogger returns the logger namespace reserved for publish and reset.
func PublishLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publishModule)
}

// PreviewLogger returns the logger namespace reserved for preview assembly.
func PreviewLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, previewModule)
}

// HTTPLogger returns the logger namespace reserved for the REST adapter.
func HTTPLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, httpModule)
}

// WebsitesLogger returns the logger namespace reserved for the website backend.
func WebsitesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, websitesModule)
}

// CommandsLogger returns the logger namespace reserved for site commands.
func CommandsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, commandsModule)
}

// WithSiteContext enriches the logger with podcast, section and operation fields.
// Empty values are ignored.
func WithSiteContext(logger interfaces.Logger, podcastID, sectionID, operation string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(podcastID); trimmed != "" {
		fields[fieldPodcastID] = trimmed
	}
	if trimmed := strings.TrimSpace(sectionID); trimmed != "" {
		fields[fieldSectionID] = trimmed
	}
	if trimmed := strings.TrimSpace(operation); trimmed != "" {
		fields[fieldOperation] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
