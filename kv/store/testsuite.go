package store

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestSuite runs a suite of tests against a store implementation.
func TestSuite(t *testing.T, newStore func() Store) {
	t.Helper()
	t.Run("GetSet", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if _, err := s.Get("foo"); err != ErrNotFound {
			t.Errorf("expected not found error, got: %v", err)
		}
		if err := s.Set("", json.RawMessage(`1`)); err != ErrEmptyKey {
			t.Errorf("expected empty key error, got: %v", err)
		}
		if err := s.Set("foo", json.RawMessage(`{"a":[1,2]}`)); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if got, err := s.Get("foo"); err != nil {
			t.Errorf("unexpected error: %s", err)
		} else if string(got) != `{"a":[1,2]}` {
			t.Errorf("wrong value: %s", got)
		}

		// Overwrite
		if err := s.Set("foo", json.RawMessage(`"bar"`)); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if got, err := s.Get("foo"); err != nil {
			t.Errorf("unexpected error: %s", err)
		} else if string(got) != `"bar"` {
			t.Errorf("wrong value: %s", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if err := s.Delete("foo"); err != ErrNotFound {
			t.Errorf("expected not found error, got: %v", err)
		}
		if err := s.Set("foo", json.RawMessage(`true`)); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if err := s.Delete("foo"); err != nil {
			t.Errorf("unexpected error: %s", err)
		}
		if _, err := s.Get("foo"); err != ErrNotFound {
			t.Errorf("expected not found error, got: %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		s := newStore()
		defer s.Close()

		if keys, err := s.Keys(""); err != nil {
			t.Errorf("unexpected error: %s", err)
		} else if len(keys) != 0 {
			t.Errorf("expected no keys, got: %q", keys)
		}

		for _, k := range []string{"b/2", "a", "b/1", "c"} {
			if err := s.Set(k, json.RawMessage(`null`)); err != nil {
				t.Errorf("unexpected error: %s", err)
			}
		}

		keys, err := s.Keys("")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if diff := cmp.Diff([]string{"a", "b/1", "b/2", "c"}, keys); diff != "" {
			t.Errorf("wrong keys (-want +got):\n%s", diff)
		}

		keys, err = s.Keys("b/")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if diff := cmp.Diff([]string{"b/1", "b/2"}, keys); diff != "" {
			t.Errorf("wrong prefixed keys (-want +got):\n%s", diff)
		}
	})
}
