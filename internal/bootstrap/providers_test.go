package bootstrap

import "testing"

func TestNewEstablishesAmbientContext(t *testing.T) {
	t.Parallel()
	providers := New(Config{GoogleClientID: "client-id"})
	if providers.Identity == nil || providers.Identity.ClientID != "client-id" {
		t.Fatalf("identity client not scoped to client id: %#v", providers.Identity)
	}
	if providers.Store == nil || providers.Store.Get() != nil {
		t.Fatalf("expected an empty store")
	}
	if providers.Theme != DefaultTheme() {
		t.Fatalf("expected default theme, got %#v", providers.Theme)
	}
}

func TestThemeOverridesKeepDefaultsForBlankFields(t *testing.T) {
	t.Parallel()
	providers := New(Config{GoogleClientID: "client-id", Theme: Theme{Primary: "teal.400"}})
	if providers.Theme.Primary != "teal.400" {
		t.Fatalf("override lost: %#v", providers.Theme)
	}
	if providers.Theme.Hover != "yellow.500" || providers.Theme.Radius != 16 {
		t.Fatalf("defaults not applied: %#v", providers.Theme)
	}
}

func TestWrapRendersChildrenInsideContext(t *testing.T) {
	t.Parallel()
	providers := New(Config{GoogleClientID: "client-id"})
	rendered := providers.Wrap(func(ambient *Providers) string {
		if ambient != providers {
			t.Fatalf("children received a different context")
		}
		return "child:" + ambient.Identity.ClientID
	})
	if rendered != "child:client-id" {
		t.Fatalf("unexpected render %q", rendered)
	}
	if providers.Wrap(nil) != "" {
		t.Fatalf("expected empty render for nil children")
	}
}
