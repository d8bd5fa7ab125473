package permissions

import (
	"context"
	"errors"
	"testing"
)

func TestSetMatchesWildcards(t *testing.T) {
	set := NewSet("websites:read", "sections:*", "websites:*@pod-2")
	cases := map[string]bool{
		"websites:read":          true,
		"WEBSITES:READ":          true,
		"websites:update":        false,
		"sections:update":        true,
		"websites:publish@pod-2": true,
		"websites:publish@pod-3": false,
		"previews:read":          false,
		"":                       false,
	}
	for permission, want := range cases {
		if got := set.Allowed(permission); got != want {
			t.Fatalf("%q: expected %v, got %v", permission, want, got)
		}
	}
	if !NewSet("*").Allowed("anything:goes") {
		t.Fatal("expected global wildcard to allow everything")
	}
}

func TestScope(t *testing.T) {
	if got := Scope("Websites:Update", "pod-1"); got != "websites:update@pod-1" {
		t.Fatalf("unexpected scoped permission %q", got)
	}
	if got := Scope("websites:update@pod-1", "pod-2"); got != "websites:update@pod-2" {
		t.Fatalf("expected rescoping, got %q", got)
	}
	if got := Scope("websites:update", " "); got != "websites:update" {
		t.Fatalf("expected blank podcast to keep global form, got %q", got)
	}
}

func TestRequireForAcceptsScopedOrGlobal(t *testing.T) {
	scoped := WithPermissions(context.Background(), "websites:update@pod-1")
	if err := RequireFor(scoped, WebsitesUpdate, "pod-1"); err != nil {
		t.Fatalf("expected scoped grant, got %v", err)
	}
	err := RequireFor(scoped, WebsitesUpdate, "pod-2")
	var denied Error
	if !errors.Is(err, ErrPermissionDenied) || !errors.As(err, &denied) || denied.Permission != "websites:update@pod-2" {
		t.Fatalf("expected scoped denial, got %v", err)
	}

	global := WithPermissions(context.Background(), WebsitesUpdate)
	if err := RequireFor(global, WebsitesUpdate, "pod-9"); err != nil {
		t.Fatalf("expected global grant, got %v", err)
	}
}

func TestNoCheckerAllowsEverything(t *testing.T) {
	if err := Require(context.Background(), WebsitesReset); err != nil {
		t.Fatalf("expected no checker to allow, got %v", err)
	}
	if !Allowed(context.Background(), WebsitesReset) {
		t.Fatal("expected Allowed without checker")
	}
	if Allowed(WithPermissions(context.Background(), SectionsRead), WebsitesReset) {
		t.Fatal("expected denial with checker")
	}
}
