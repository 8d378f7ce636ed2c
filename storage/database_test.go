package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"sitegen/interfaces"
)

func newTestStore(t *testing.T) *DBStore {
	t.Helper()
	store, err := NewDBStore(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewDBStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestCountGenerationsSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	records := []interfaces.UsageRecord{
		{UserID: "alice", Outcome: "success", CreatedAt: now.Add(-time.Hour)},
		{UserID: "alice", Outcome: "upstream_failure", CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: "alice", Outcome: "success", CreatedAt: now.Add(-48 * time.Hour)},
		{UserID: "bob", Outcome: "success", CreatedAt: now.Add(-time.Minute)},
	}
	for _, rec := range records {
		if err := store.RecordGeneration(ctx, rec); err != nil {
			t.Fatalf("RecordGeneration: %v", err)
		}
	}

	got, err := store.CountGenerationsSince(ctx, "alice", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountGenerationsSince: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1 successful generation for alice in 24h, got %d", got)
	}

	got, err = store.CountGenerationsSince(ctx, "carol", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountGenerationsSince: %v", err)
	}
	if got != 0 {
		t.Errorf("expected 0 for unknown user, got %d", got)
	}
}

func TestRecordGeneration_DefaultsTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordGeneration(ctx, interfaces.UsageRecord{UserID: "alice", Outcome: "success"}); err != nil {
		t.Fatalf("RecordGeneration: %v", err)
	}
	got, err := store.CountGenerationsSince(ctx, "alice", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("CountGenerationsSince: %v", err)
	}
	if got != 1 {
		t.Errorf("expected record stamped with current time, got count %d", got)
	}
}

func TestPruneUsageBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{time.Hour, 40 * 24 * time.Hour, 60 * 24 * time.Hour} {
		if err := store.RecordGeneration(ctx, interfaces.UsageRecord{UserID: "alice", Outcome: "success", CreatedAt: now.Add(-age)}); err != nil {
			t.Fatalf("RecordGeneration: %v", err)
		}
	}

	n, err := store.PruneUsageBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PruneUsageBefore: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rows pruned, got %d", n)
	}

	left, err := store.CountGenerationsSince(ctx, "alice", time.Time{})
	if err != nil {
		t.Fatalf("CountGenerationsSince: %v", err)
	}
	if left != 1 {
		t.Errorf("expected 1 row left, got %d", left)
	}
}

func TestPingDB(t *testing.T) {
	if err := newTestStore(t).PingDB(); err != nil {
		t.Fatalf("PingDB: %v", err)
	}
}
