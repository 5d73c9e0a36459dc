package instance

import "testing"

func TestGetID(t *testing.T) {
	t.Setenv("MARKETPLACE_INSTANCE_ID", "")
	t.Setenv("HOSTNAME", "")
	if got := GetID("api-0"); got != "api-0" {
		t.Fatalf("expected fallback, got %q", got)
	}

	t.Setenv("HOSTNAME", "pod-7")
	if got := GetID("api-0"); got != "pod-7" {
		t.Fatalf("expected hostname, got %q", got)
	}

	t.Setenv("MARKETPLACE_INSTANCE_ID", "cart-a")
	if got := GetID("api-0"); got != "cart-a" {
		t.Fatalf("expected explicit instance id, got %q", got)
	}
}
