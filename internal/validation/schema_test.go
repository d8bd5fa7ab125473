package validation

import (
	"errors"
	"strings"
	"testing"
)

func heroSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":     map[string]any{"type": "string"},
			"maxItems":  map[string]any{"type": []any{"integer", "null"}},
			"platforms": map[string]any{"type": "array", "items": map[string]any{"type": "string", "enum": []any{"rss", "spotify"}}},
		},
		"required":             []string{"title"},
		"additionalProperties": false,
	}
}

func TestValidatePayloadAcceptsConformingConfig(t *testing.T) {
	payload := map[string]any{
		"title":     "Hello",
		"maxItems":  42,
		"platforms": []string{"rss"},
	}
	if err := ValidatePayload(heroSchema(), payload); err != nil {
		t.Fatalf("expected payload to validate, got %v", err)
	}
}

func TestValidatePayloadAcceptsNullForNullableInteger(t *testing.T) {
	payload := map[string]any{"title": "Hello", "maxItems": nil}
	if err := ValidatePayload(heroSchema(), payload); err != nil {
		t.Fatalf("expected nil integer to validate, got %v", err)
	}
}

func TestValidatePayloadReportsIssues(t *testing.T) {
	payload := map[string]any{
		"maxItems":  "many",
		"platforms": []string{"myspace"},
	}
	err := ValidatePayload(heroSchema(), payload)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !errors.Is(err, ErrSchemaValidation) {
		t.Fatalf("expected ErrSchemaValidation, got %v", err)
	}
	issues := Issues(err)
	if len(issues) == 0 {
		t.Fatalf("expected issues, got none")
	}
	fields := map[string]bool{}
	for _, issue := range issues {
		fields[issue.Field()] = true
	}
	if !fields["maxItems"] {
		t.Fatalf("expected maxItems issue, got %+v", issues)
	}
}

func TestValidatePayloadRejectsUndeclaredProperty(t *testing.T) {
	payload := map[string]any{"title": "Hello", "extra": true}
	if err := ValidatePayload(heroSchema(), payload); err == nil {
		t.Fatalf("expected additional property to be rejected")
	}
}

func TestValidatePartialPayloadSkipsRequired(t *testing.T) {
	if err := ValidatePayload(heroSchema(), map[string]any{}); err == nil {
		t.Fatalf("expected missing required title to fail")
	}
	if err := ValidatePartialPayload(heroSchema(), map[string]any{}); err != nil {
		t.Fatalf("expected partial validation to pass, got %v", err)
	}
}

func TestValidatePayloadWithEmptySchemaAcceptsAnything(t *testing.T) {
	if err := ValidatePayload(nil, map[string]any{"anything": 1}); err != nil {
		t.Fatalf("expected nil schema to accept payload, got %v", err)
	}
}

func TestValidateSchemaRejectsUnsupportedKeyword(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string", "minProperties": 1},
		},
	}
	err := ValidateSchema(schema)
	if err == nil {
		t.Fatalf("expected unsupported keyword error")
	}
	if !errors.Is(err, ErrSchemaInvalid) {
		t.Fatalf("expected ErrSchemaInvalid, got %v", err)
	}
}

func TestValidationIssueField(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"#":              "",
		"/title":         "title",
		"#/platforms/0":  "platforms",
		"/maxItems/deep": "maxItems",
	}
	for location, want := range cases {
		if got := (ValidationIssue{Location: location}).Field(); got != want {
			t.Fatalf("Field(%q) = %q, want %q", location, got, want)
		}
	}
}

func TestPayloadErrorNamesFields(t *testing.T) {
	err := ValidatePayload(heroSchema(), map[string]any{"title": 5})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "title: ") {
		t.Fatalf("expected message keyed by field, got %q", err.Error())
	}
}

func TestCompiledSchemaIsReused(t *testing.T) {
	first, err := compiled(heroSchema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := compiled(heroSchema())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached schema to be reused")
	}
}
