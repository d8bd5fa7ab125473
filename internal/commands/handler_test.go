package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type testMessage struct{}

func (testMessage) Type() string { return "sitebuilder.test.message" }

func (testMessage) Validate() error { return nil }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "sitebuilder.test.invalid" }

func (invalidMessage) Validate() error {
	return validationError()
}

func validationError() error {
	return errors.New("invalid")
}

func TestHandlerExecuteSuccess(t *testing.T) {
	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	if err := h.Execute(context.Background(), testMessage{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !called {
		t.Fatal("expected handler to be invoked")
	}
}

func TestHandlerValidationShortCircuitsExecution(t *testing.T) {
	called := false
	h := NewHandler[invalidMessage](func(ctx context.Context, msg invalidMessage) error {
		called = true
		return nil
	})

	err := h.Execute(context.Background(), invalidMessage{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when validation fails")
	}
}

func TestHandlerContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		called = true
		return nil
	})

	err := h.Execute(ctx, testMessage{})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if called {
		t.Fatal("expected handler not to run when context is cancelled")
	}
}

func TestHandlerWrapsExecutionError(t *testing.T) {
	execErr := errors.New("boom")
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		return execErr
	})

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected wrapped execution error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}
	if !goerrors.HasCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category to propagate, got %v", err)
	}
}

func TestHandlerHonoursTimeoutOption(t *testing.T) {
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return nil
		}
	}, WithTimeout[testMessage](10*time.Millisecond))

	err := h.Execute(context.Background(), testMessage{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category for timeout, got %v", err)
	}
}

func TestHandlerReportsTelemetry(t *testing.T) {
	var infos []TelemetryInfo
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := NewHandler[testMessage](func(ctx context.Context, msg testMessage) error {
		clock = clock.Add(15 * time.Millisecond)
		return context.Canceled
	},
		WithOperation[testMessage]("site.test"),
		WithClock[testMessage](func() time.Time { return clock }),
		WithTelemetry[testMessage](func(_ context.Context, _ testMessage, info TelemetryInfo) {
			infos = append(infos, info)
		}),
	)

	if err := h.Execute(context.Background(), testMessage{}); !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected wrapped cancellation, got %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("expected one telemetry report, got %d", len(infos))
	}
	info := infos[0]
	if info.Status != TelemetryStatusContextError || info.Operation != "site.test" || info.Duration != 15*time.Millisecond {
		t.Fatalf("unexpected telemetry %+v", info)
	}
	if info.Command != "sitebuilder.test.message" {
		t.Fatalf("unexpected command %q", info.Command)
	}
}

type scopedMessage struct {
	PodcastID string
}

func (scopedMessage) Type() string { return "sitebuilder.test.scoped" }

func (scopedMessage) Validate() error { return nil }

func (m scopedMessage) SiteFields() map[string]any {
	return map[string]any{"podcast_id": m.PodcastID, "command": "spoofed", "section_id": ""}
}

func TestHandlerTelemetryCarriesSiteFields(t *testing.T) {
	var info TelemetryInfo
	h := NewHandler[scopedMessage](func(context.Context, scopedMessage) error { return nil },
		WithTelemetry[scopedMessage](func(_ context.Context, _ scopedMessage, got TelemetryInfo) {
			info = got
		}),
	)
	if err := h.Execute(context.Background(), scopedMessage{PodcastID: "pod-7"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if info.Status != TelemetryStatusSuccess || info.PodcastID() != "pod-7" {
		t.Fatalf("unexpected telemetry %+v", info)
	}
	if info.Fields["command"] != "sitebuilder.test.scoped" {
		t.Fatalf("scoped fields must not override the command name, got %v", info.Fields["command"])
	}
	if _, ok := info.Fields["section_id"]; ok {
		t.Fatalf("expected blank section id to be skipped")
	}
}
