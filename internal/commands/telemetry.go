package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/tgdscott/DoneCast-sub013/pkg/interfaces"
)

// TelemetryStatus is the outcome class of one command execution.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// SiteScoped is implemented by messages that target one website. The
// returned fields (podcast_id, section_id, subdomain) annotate logs and
// telemetry for the execution.
type SiteScoped interface {
	SiteFields() map[string]any
}

// TelemetryInfo describes a finished execution.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// PodcastID returns the podcast the execution targeted, if any.
func (i TelemetryInfo) PodcastID() string {
	id, _ := i.Fields["podcast_id"].(string)
	return id
}

// Telemetry replaces the handler's outcome logging when set.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

func executionFields(msg command.Message, operation string) map[string]any {
	fields := map[string]any{
		"command": command.GetMessageType(msg),
	}
	if operation != "" {
		fields["operation"] = operation
	}
	if scoped, ok := msg.(SiteScoped); ok {
		for key, value := range scoped.SiteFields() {
			if _, taken := fields[key]; !taken && value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}
