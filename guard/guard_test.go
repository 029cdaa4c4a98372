package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sharedcode/graphkv"
	"github.com/sharedcode/graphkv/inmemory"
)

func TestEvaluator(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		key        string
		value      any
		want       bool
	}{
		{"key prefix allowed", `key.startsWith("public!")`, "public!a", "x", true},
		{"key prefix rejected", `key.startsWith("public!")`, "admin!a", "x", false},
		{"null value", `value != null`, "k", nil, false},
		{"number bound", `type(value) != double || value < 100.0`, "k", float64(7), true},
		{"number over bound", `type(value) != double || value < 100.0`, "k", float64(700), false},
		{"string value", `type(value) != string || size(value) <= 3`, "k", "abcd", false},
		{"map value", `!(type(value) == map && "$type" in value)`, "k", map[string]any{"$type": "ref"}, false},
		{"list value", `type(value) != list || size(value) == 2`, "k", []any{"byId", "1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEvaluator(tt.expression)
			if err != nil {
				t.Fatal(err)
			}
			got, err := e.Evaluate(tt.key, tt.value)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q, %v) = %v, want %v", tt.key, tt.value, got, tt.want)
			}
		})
	}
}

func TestNewEvaluatorErrors(t *testing.T) {
	for _, expr := range []string{"", "key +", `size(key)`} {
		if _, err := NewEvaluator(expr); err == nil {
			t.Errorf("expected error compiling %q", expr)
		}
	}
}

type failingStore struct{ err error }

func (f failingStore) MultiGet(context.Context, []string) ([]graphkv.Item, error) {
	return nil, f.err
}

func (f failingStore) MultiSet(context.Context, []graphkv.Item) error {
	return f.err
}

func TestStoreRejectsWrites(t *testing.T) {
	inner := inmemory.NewStore()
	s, err := New(inner, `!key.startsWith("locked!")`)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err = s.MultiSet(ctx, []graphkv.Item{
		{Key: "open!a", Value: 1},
		{Key: "locked!b", Value: 2},
		{Key: "open!c", Value: 3},
	})
	var kfs graphkv.KeyFailures
	if !errors.As(err, &kfs) {
		t.Fatalf("expected KeyFailures, got %v", err)
	}
	if diff := cmp.Diff([]string{"locked!b"}, kfs.Keys()); diff != "" {
		t.Errorf("rejected keys mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, ErrWriteRejected) {
		t.Error("expected ErrWriteRejected")
	}

	got, err := s.MultiGet(ctx, []string{"open!a", "locked!b", "open!c"})
	if err != nil {
		t.Fatal(err)
	}
	want := []graphkv.Item{{Key: "open!a", Value: 1}, {Key: "open!c", Value: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MultiGet mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreMergesInnerFailures(t *testing.T) {
	boom := errors.New("boom")
	s, _ := New(failingStore{err: boom}, `value != null`)
	err := s.MultiSet(context.Background(), []graphkv.Item{
		{Key: "a", Value: nil},
		{Key: "b", Value: 1},
	})
	var kfs graphkv.KeyFailures
	if !errors.As(err, &kfs) {
		t.Fatalf("expected KeyFailures, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, kfs.Keys()); diff != "" {
		t.Errorf("failed keys mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(kfs[0], ErrWriteRejected) || !errors.Is(kfs[1], boom) {
		t.Errorf("unexpected failures %v", kfs)
	}
}

func TestAllAllowed(t *testing.T) {
	s, _ := New(inmemory.NewStore(), `true`)
	if err := s.MultiSet(context.Background(), []graphkv.Item{{Key: "a", Value: 1}}); err != nil {
		t.Errorf("MultiSet failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, "true"); !errors.Is(err, graphkv.ErrNilStore) {
		t.Errorf("expected ErrNilStore, got %v", err)
	}
	if _, err := New(inmemory.NewStore(), "key +"); err == nil {
		t.Error("expected compile error")
	}
}
