package mnemosyne_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/argos-watch/argos/pkg/domain"
	"github.com/argos-watch/argos/pkg/mnemosyne"
)

func newRedisStore(t *testing.T) *mnemosyne.RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := mnemosyne.NewRedisStore(s.Addr(), 0, "")
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_PutGetDelete(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	rec := domain.TrackedContainer{
		ID:             "abc123",
		LastTotalBytes: 4_200_000,
		LastActiveAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "abc123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastTotalBytes != rec.LastTotalBytes {
		t.Errorf("expected %d bytes, got %d", rec.LastTotalBytes, got.LastTotalBytes)
	}
	if !got.LastActiveAt.Equal(rec.LastActiveAt) {
		t.Errorf("expected last active %v, got %v", rec.LastActiveAt, got.LastActiveAt)
	}

	if err := store.Delete(ctx, "abc123"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "abc123"); !errors.Is(err, mnemosyne.ErrNotTracked) {
		t.Errorf("expected ErrNotTracked after delete, got %v", err)
	}
}

func TestRedisStore_List(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	for _, id := range []domain.ContainerID{"c1", "c2", "c3"} {
		rec := domain.TrackedContainer{
			ID:             id,
			LastTotalBytes: 100,
			LastActiveAt:   time.Now().UTC(),
		}
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put %s failed: %v", id, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 tracked containers, got %d", len(list))
	}

	seen := make(map[domain.ContainerID]bool)
	for _, rec := range list {
		seen[rec.ID] = true
	}
	for _, id := range []domain.ContainerID{"c1", "c2", "c3"} {
		if !seen[id] {
			t.Errorf("expected container %s in listing", id)
		}
	}
}

func TestRedisStore_SurvivesReconnect(t *testing.T) {
	s := miniredis.RunT(t)

	store, err := mnemosyne.NewRedisStore(s.Addr(), 0, "")
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	ctx := context.Background()

	rec := domain.TrackedContainer{
		ID:             "persisted",
		LastTotalBytes: 777,
		LastActiveAt:   time.Now().UTC(),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// A fresh client against the same backend sees the record: the watcher
	// does not re-seed long-idle containers across restarts.
	reopened, err := mnemosyne.NewRedisStore(s.Addr(), 0, "")
	if err != nil {
		t.Fatalf("Failed to reopen redis store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "persisted")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.LastTotalBytes != 777 {
		t.Errorf("expected 777 bytes after reopen, got %d", got.LastTotalBytes)
	}
}
