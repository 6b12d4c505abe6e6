package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/king-kite/nexthrms-v2-sub002/internal/core"
)

func TestService_PruneHistory(t *testing.T) {
	now := time.Now().UTC()
	store := &memStore{Logs: []core.ImportLog{
		{Kind: core.KindEmployees, FileName: "old.csv", StartedAt: now.Add(-100 * 24 * time.Hour)},
		{Kind: core.KindEmployees, FileName: "older.csv", StartedAt: now.Add(-200 * 24 * time.Hour)},
		{Kind: core.KindDepartments, FileName: "recent.csv", StartedAt: now.Add(-time.Hour)},
	}}

	n, err := newService(store).PruneHistory(context.Background(), 90*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("pruned = %d, want 2", n)
	}
	if len(store.Logs) != 1 || store.Logs[0].FileName != "recent.csv" {
		t.Errorf("remaining logs = %+v", store.Logs)
	}
}

func TestService_PruneHistoryInvalid(t *testing.T) {
	if _, err := newService(nil).PruneHistory(context.Background(), time.Hour); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Errorf("nil store: error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := newService(&memStore{}).PruneHistory(context.Background(), 0); err == nil {
		t.Error("zero retention: expected error")
	}
}

func TestService_RetentionSchedulerRunsAndStops(t *testing.T) {
	store := &memStore{Logs: []core.ImportLog{
		{Kind: core.KindEmployees, FileName: "old.csv", StartedAt: time.Now().Add(-48 * time.Hour)},
	}}
	svc := newService(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(ctx, core.RetentionConfig{KeepFor: 24 * time.Hour, CheckInterval: time.Hour})
		close(done)
	}()

	// The first run happens before the scheduler waits on its ticker.
	deadline := time.After(2 * time.Second)
	for {
		store.mu.Lock()
		remaining := len(store.Logs)
		store.mu.Unlock()
		if remaining == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("scheduler did not prune on start")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
