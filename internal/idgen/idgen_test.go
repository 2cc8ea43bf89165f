package idgen

import (
	"regexp"
	"testing"
)

func TestNewRunID_Shape(t *testing.T) {
	id, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error: %v", err)
	}
	if len(id) != len(Prefix)+length {
		t.Errorf("NewRunID() length = %d, want %d (id=%q)", len(id), len(Prefix)+length, id)
	}
	pattern := regexp.MustCompile(`^run-[a-zA-Z0-9]+$`)
	if !pattern.MatchString(id) {
		t.Errorf("NewRunID() = %q, does not match expected pattern", id)
	}
}

func TestNewRunID_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := NewRunID()
		if err != nil {
			t.Fatalf("NewRunID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}
