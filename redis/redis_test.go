package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/sharedcode/graphkv"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewConnectionStore(Options{Address: mr.Addr()})
	if err != nil {
		t.Fatalf("NewConnectionStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestMultiSetThenMultiGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	items := []graphkv.Item{
		{Key: "byId!0!name", Value: "Jim"},
		{Key: "byId!0!age", Value: float64(42)},
		{Key: "byId!0!tags", Value: []any{"a", "b"}},
		{Key: "byId!1", Value: nil},
	}
	if err := s.MultiSet(ctx, items); err != nil {
		t.Fatalf("MultiSet failed: %v", err)
	}
	if got, _ := mr.Get("byId!0!name"); got != `"Jim"` {
		t.Errorf("stored document = %q, want %q", got, `"Jim"`)
	}

	got, err := s.MultiGet(ctx, []string{"byId!0!name", "byId!0!age", "missing", "byId!0!tags", "byId!1"})
	if err != nil {
		t.Fatalf("MultiGet failed: %v", err)
	}
	want := []graphkv.Item{
		{Key: "byId!0!name", Value: "Jim"},
		{Key: "byId!0!age", Value: float64(42)},
		{Key: "byId!0!tags", Value: []any{"a", "b"}},
		{Key: "byId!1", Value: nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MultiGet mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiGetEmpty(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.MultiGet(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("MultiGet(nil) = %v, %v; want empty, nil", got, err)
	}
}

func TestMultiGetUndecodableValue(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Set("bad", "{not json")
	mr.Set("good", `"ok"`)

	got, err := s.MultiGet(context.Background(), []string{"bad", "good"})
	var kfs graphkv.KeyFailures
	if !errors.As(err, &kfs) {
		t.Fatalf("expected KeyFailures, got %v", err)
	}
	if diff := cmp.Diff([]string{"bad"}, kfs.Keys()); diff != "" {
		t.Errorf("failed keys mismatch (-want +got):\n%s", diff)
	}
	if len(got) != 1 || got[0].Key != "good" {
		t.Errorf("expected only the decodable item, got %v", got)
	}
}

func TestMultiSetServerErrorFailsEveryKey(t *testing.T) {
	s, mr := newTestStore(t)
	mr.SetError("READONLY replica")
	defer mr.SetError("")

	err := s.MultiSet(context.Background(), []graphkv.Item{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
	})
	var kfs graphkv.KeyFailures
	if !errors.As(err, &kfs) {
		t.Fatalf("expected KeyFailures, got %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, kfs.Keys()); diff != "" {
		t.Errorf("failed keys mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiGetServerErrorGivesUp(t *testing.T) {
	old := graphkv.RetryBaseDelay
	graphkv.RetryBaseDelay = time.Millisecond
	defer func() { graphkv.RetryBaseDelay = old }()

	s, mr := newTestStore(t)
	mr.SetError("LOADING")
	defer mr.SetError("")

	if _, err := s.MultiGet(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected MultiGet to fail")
	}
}

func TestDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	if err := s.MultiSet(ctx, []graphkv.Item{{Key: "a", Value: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("a") {
		t.Error("key a still exists after delete")
	}
}

func TestSharedConnection(t *testing.T) {
	mr := miniredis.RunT(t)
	if _, err := OpenConnection(Options{URL: "redis://" + mr.Addr() + "/0"}); err != nil {
		t.Fatalf("OpenConnection failed: %v", err)
	}
	defer CloseConnection()
	if !IsConnectionInstantiated() {
		t.Fatal("expected singleton connection")
	}

	s := NewStore()
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if err := s.MultiSet(ctx, []graphkv.Item{{Key: "k", Value: true}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.MultiGet(ctx, []string{"k"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]graphkv.Item{{Key: "k", Value: true}}, got); diff != "" {
		t.Errorf("MultiGet mismatch (-want +got):\n%s", diff)
	}
}

func TestClosedStore(t *testing.T) {
	s, _ := newTestStore(t)
	s.Close()
	if _, err := s.MultiGet(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error on closed store")
	}
}

func TestFactoryRegistered(t *testing.T) {
	mr := miniredis.RunT(t)
	opts := graphkv.DefaultOptions()
	opts.StoreType = graphkv.Redis
	opts.Redis = &graphkv.RedisConfig{Address: mr.Addr()}

	st, err := graphkv.NewStore(opts)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer st.(graphkv.CloseableStore).Close()
	if err := st.MultiSet(context.Background(), []graphkv.Item{{Key: "x", Value: "y"}}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("x") {
		t.Error("expected key written through factory store")
	}
}
