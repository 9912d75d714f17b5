package service_test

import (
	"context"
	"strings"
	"testing"

	scheduleoutadapter "confsched/internal/modules/schedule/adapter/out"
	"confsched/internal/modules/schedule/service"
	"confsched/internal/platform/id"
)

type fakeID string

func (f fakeID) New() string { return string(f) }

func TestEnsureUserIDIsStable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := scheduleoutadapter.NewMemoryStore()

	first, err := service.EnsureUserID(ctx, store, fakeID("go-1"))
	if err != nil {
		t.Fatalf("ensure user id: %v", err)
	}
	second, err := service.EnsureUserID(ctx, store, fakeID("go-2"))
	if err != nil {
		t.Fatalf("ensure user id again: %v", err)
	}
	if first != "go-1" || second != "go-1" {
		t.Fatalf("expected go-1 twice, got %q and %q", first, second)
	}
}

func TestEnsureUserIDUsesPrefix(t *testing.T) {
	t.Parallel()
	got, err := service.EnsureUserID(context.Background(), scheduleoutadapter.NewMemoryStore(), id.UserID{Prefix: "cli"})
	if err != nil {
		t.Fatalf("ensure user id: %v", err)
	}
	if !strings.HasPrefix(got, "cli-") || len(got) != len("cli-")+36 {
		t.Fatalf("expected cli-<uuid>, got %q", got)
	}
}
