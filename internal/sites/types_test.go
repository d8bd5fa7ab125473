package sites

import (
	"errors"
	"reflect"
	"testing"
)

func TestSectionStateValidate(t *testing.T) {
	valid := SectionState{
		Order:   []string{"hero", "faq"},
		Enabled: map[string]bool{"hero": true},
		Config:  map[string]map[string]any{"faq": {"title": "FAQ"}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid state, got %v", err)
	}

	dup := SectionState{Order: []string{"hero", "hero"}}
	if err := dup.Validate(); !errors.Is(err, ErrDuplicateSectionID) {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	dangling := SectionState{Order: []string{"hero"}, Enabled: map[string]bool{"faq": true}}
	if err := dangling.Validate(); !errors.Is(err, ErrDanglingSection) {
		t.Fatalf("expected dangling error, got %v", err)
	}

	blank := SectionState{Order: []string{" "}}
	if err := blank.Validate(); !errors.Is(err, ErrBlankSectionID) {
		t.Fatalf("expected blank id error, got %v", err)
	}
}

func TestSectionStateCloneIsDeep(t *testing.T) {
	original := SectionState{
		Order:   []string{"hero"},
		Enabled: map[string]bool{"hero": true},
		Config: map[string]map[string]any{
			"hero": {"tags": []any{"a"}, "nested": map[string]any{"k": "v"}},
		},
	}
	cloned := original.Clone()
	cloned.Order[0] = "faq"
	cloned.Enabled["hero"] = false
	cloned.Config["hero"]["tags"].([]any)[0] = "b"
	cloned.Config["hero"]["nested"].(map[string]any)["k"] = "changed"

	if original.Order[0] != "hero" || !original.Enabled["hero"] {
		t.Fatal("expected order and enabled to be copied")
	}
	if original.Config["hero"]["tags"].([]any)[0] != "a" {
		t.Fatal("expected nested slice to be copied")
	}
	if original.Config["hero"]["nested"].(map[string]any)["k"] != "v" {
		t.Fatal("expected nested map to be copied")
	}
}

func TestSectionStateCloneNormalisesNilMaps(t *testing.T) {
	cloned := SectionState{}.Clone()
	want := SectionState{Order: []string{}, Enabled: map[string]bool{}, Config: map[string]map[string]any{}}
	if !reflect.DeepEqual(cloned, want) {
		t.Fatalf("unexpected clone %#v", cloned)
	}
}

func TestLifecycleClosesOnce(t *testing.T) {
	var life Lifecycle
	if !life.Alive() {
		t.Fatal("expected new lifecycle to be alive")
	}
	if !life.Close() {
		t.Fatal("expected first close to report true")
	}
	if life.Close() {
		t.Fatal("expected second close to report false")
	}
	if life.Alive() {
		t.Fatal("expected closed lifecycle to be dead")
	}
}
