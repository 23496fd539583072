package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7Unique(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
		if _, err := Parse(id); err != nil {
			t.Fatalf("generated ID does not parse: %v", err)
		}
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("req_", UUIDv7())
	id := gen()
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("expected req_ prefix, got %s", id)
	}
	if _, err := Parse(strings.TrimPrefix(id, "req_")); err != nil {
		t.Errorf("suffix is not a UUID: %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid UUID")
	}
}
