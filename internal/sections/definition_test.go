package sections

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDefaultCatalogDecodes(t *testing.T) {
	defs := DefaultCatalog()
	index := Index(defs)
	for _, id := range []string{"header", "hero", "about", "latest-episodes", "reviews", "faq", "subscribe", "contact", "footer"} {
		if _, ok := index[id]; !ok {
			t.Fatalf("expected %s in default catalog", id)
		}
	}
	if defs[0].ID != "header" || defs[len(defs)-1].ID != "footer" {
		t.Fatalf("expected header first and footer last, got %s..%s", defs[0].ID, defs[len(defs)-1].ID)
	}
}

func TestDefinitionRejectsDuplicateFieldNames(t *testing.T) {
	raw := `{"id":"hero","requiredFields":[{"name":"title","type":"text"}],"optionalFields":[{"name":"title","type":"textarea"}]}`
	_, err := DecodeDefinition(json.RawMessage(raw))
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestDefinitionRejectsBlankID(t *testing.T) {
	if _, err := DecodeDefinition(json.RawMessage(`{"label":"Nameless"}`)); !errors.Is(err, ErrBlankDefinition) {
		t.Fatalf("expected ErrBlankDefinition, got %v", err)
	}
}

func TestDefinitionDefaultsAndSchema(t *testing.T) {
	def, ok := Index(DefaultCatalog())["reviews"]
	if !ok {
		t.Fatalf("reviews missing")
	}
	defaults := def.Defaults()
	want := map[string]any{
		"heading":     "What listeners say",
		"max_reviews": 3,
		"sources":     []string{"apple"},
	}
	if !reflect.DeepEqual(defaults, want) {
		t.Fatalf("unexpected defaults %#v", defaults)
	}

	schema := def.Schema()
	if schema["additionalProperties"] != false {
		t.Fatalf("expected closed schema, got %v", schema["additionalProperties"])
	}
	if _, ok := schema["required"]; ok {
		t.Fatalf("reviews has no required fields, got %v", schema["required"])
	}
	props := schema["properties"].(map[string]any)
	if len(props) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(props))
	}

	hero := Index(DefaultCatalog())["hero"]
	if got := hero.Schema()["required"]; !reflect.DeepEqual(got, []string{"title"}) {
		t.Fatalf("expected hero title to be required, got %v", got)
	}
}

func TestDefinitionJSONRoundTrip(t *testing.T) {
	for _, def := range DefaultCatalog() {
		encoded, err := json.Marshal(def)
		if err != nil {
			t.Fatalf("marshal %s: %v", def.ID, err)
		}
		decoded, err := DecodeDefinition(encoded)
		if err != nil {
			t.Fatalf("decode %s: %v", def.ID, err)
		}
		if !reflect.DeepEqual(def, decoded) {
			t.Fatalf("round trip mismatch for %s", def.ID)
		}
	}
}

func TestInitialStateUsesDefaultEnabledDefinitions(t *testing.T) {
	state := InitialState(DefaultCatalog())
	if err := state.Validate(); err != nil {
		t.Fatalf("invalid initial state: %v", err)
	}
	want := []string{"header", "hero", "about", "latest-episodes", "subscribe", "footer"}
	if !reflect.DeepEqual(state.Order, want) {
		t.Fatalf("unexpected order %v", state.Order)
	}
	for _, id := range want {
		if !state.Enabled[id] {
			t.Fatalf("expected %s enabled", id)
		}
	}
	if state.Config["latest-episodes"]["count"] != 6 {
		t.Fatalf("expected default count 6, got %#v", state.Config["latest-episodes"]["count"])
	}
}
