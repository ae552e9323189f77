package argus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/argos-watch/argos/pkg/argus"
	"github.com/argos-watch/argos/pkg/domain"
	"github.com/argos-watch/argos/pkg/mnemosyne"
)

const (
	threshold = int64(500)
	timeout   = 900 * time.Second
)

func newTracker(t *testing.T) *argus.Tracker {
	t.Helper()
	return argus.NewTracker(mnemosyne.NewMemoryStore(), threshold, timeout)
}

func TestTracker_FirstObservationSeeds(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()
	now := time.Now()

	a, err := tracker.Observe(ctx, "c1", 10_000, now)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Seeded {
		t.Errorf("expected SEEDED on first observation, got %s", a.Kind)
	}

	ids, err := tracker.TrackedIDs(ctx)
	if err != nil {
		t.Fatalf("TrackedIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("expected exactly [c1] tracked, got %v", ids)
	}
}

func TestTracker_ThresholdBoundary(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()
	t0 := time.Now()

	if _, err := tracker.Observe(ctx, "c1", 1_000, t0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// delta == threshold is NOT significant (strict >)
	a, err := tracker.Observe(ctx, "c1", 1_000+threshold, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Idle {
		t.Errorf("delta == threshold must not be activity, got %s", a.Kind)
	}
	if a.Delta != threshold {
		t.Errorf("expected delta %d, got %d", threshold, a.Delta)
	}

	// delta == threshold+1 IS significant (measured against the seed total,
	// since the sub-threshold poll above left state untouched)
	a, err = tracker.Observe(ctx, "c1", 1_000+threshold+1, t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Activity {
		t.Errorf("delta == threshold+1 must be activity, got %s", a.Kind)
	}
	if a.Delta != threshold+1 {
		t.Errorf("expected delta %d, got %d", threshold+1, a.Delta)
	}
}

func TestTracker_IdleBoundary(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()
	t0 := time.Now()

	if _, err := tracker.Observe(ctx, "c1", 1_000, t0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// idleDuration == timeout - 1s: still idle
	a, err := tracker.Observe(ctx, "c1", 1_000, t0.Add(timeout-time.Second))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Idle {
		t.Errorf("idle below timeout must not fire, got %s", a.Kind)
	}

	// idleDuration == timeout exactly: fires (>=)
	a, err = tracker.Observe(ctx, "c1", 1_000, t0.Add(timeout))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.IdleTimeout {
		t.Errorf("idleDuration == timeout must fire, got %s", a.Kind)
	}
	if a.IdleFor != timeout {
		t.Errorf("expected idle duration %v, got %v", timeout, a.IdleFor)
	}

	// State cleared: the next observation re-seeds
	a, err = tracker.Observe(ctx, "c1", 1_000, t0.Add(timeout+time.Minute))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Seeded {
		t.Errorf("expected re-seed after timeout cleared state, got %s", a.Kind)
	}
}

func TestTracker_IdleClockNeverResetsOnZeroDelta(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()
	t0 := time.Now()

	if _, err := tracker.Observe(ctx, "c1", 5_000, t0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Repeated zero-delta polls: idle duration grows monotonically.
	var last time.Duration
	for i := 1; i <= 5; i++ {
		a, err := tracker.Observe(ctx, "c1", 5_000, t0.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Observe %d failed: %v", i, err)
		}
		if a.Kind != argus.Idle {
			t.Fatalf("poll %d: expected IDLE, got %s", i, a.Kind)
		}
		if a.IdleFor <= last {
			t.Errorf("poll %d: idle duration %v did not grow past %v", i, a.IdleFor, last)
		}
		last = a.IdleFor
	}
}

func TestTracker_ActivityResetsIdleClock(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()
	t0 := time.Now()

	if _, err := tracker.Observe(ctx, "c1", 1_000, t0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Significant traffic just before the timeout would have fired.
	a, err := tracker.Observe(ctx, "c1", 100_000, t0.Add(timeout-time.Minute))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Activity {
		t.Fatalf("expected ACTIVITY, got %s", a.Kind)
	}

	// The old seed time no longer matters; idleness restarts from the burst.
	a, err = tracker.Observe(ctx, "c1", 100_000, t0.Add(timeout+time.Minute))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.Idle {
		t.Errorf("expected IDLE after clock reset, got %s", a.Kind)
	}
	if a.IdleFor != 2*time.Minute {
		t.Errorf("expected idle duration 2m from the activity, got %v", a.IdleFor)
	}
}

func TestTracker_NegativeDeltaIsNotActivity(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()
	t0 := time.Now()

	if _, err := tracker.Observe(ctx, "c1", 1_000_000, t0); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Counter reset: current total drops below the recorded one.
	a, err := tracker.Observe(ctx, "c1", 100, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("negative delta must not error: %v", err)
	}
	if a.Kind != argus.Idle {
		t.Errorf("negative delta must not be activity, got %s", a.Kind)
	}
	if a.Delta >= 0 {
		t.Errorf("expected negative delta, got %d", a.Delta)
	}

	// Idle duration keeps accumulating through the reset.
	a, err = tracker.Observe(ctx, "c1", 100, t0.Add(timeout))
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if a.Kind != argus.IdleTimeout {
		t.Errorf("expected timeout to fire despite counter reset, got %s", a.Kind)
	}
}

func TestTracker_ForgetDropsStateSilently(t *testing.T) {
	tracker := newTracker(t)
	ctx := context.Background()

	if _, err := tracker.Observe(ctx, "c1", 1_000, time.Now()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := tracker.Forget(ctx, "c1"); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}

	ids, err := tracker.TrackedIDs(ctx)
	if err != nil {
		t.Fatalf("TrackedIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no tracked containers after Forget, got %v", ids)
	}
}

type failingStore struct {
	mnemosyne.Store
}

var errStore = errors.New("store unavailable")

func (f *failingStore) Get(ctx context.Context, id domain.ContainerID) (*domain.TrackedContainer, error) {
	return nil, errStore
}

func TestTracker_StoreErrorSurfaces(t *testing.T) {
	tracker := argus.NewTracker(&failingStore{Store: mnemosyne.NewMemoryStore()}, threshold, timeout)

	_, err := tracker.Observe(context.Background(), "c1", 1, time.Now())
	if !errors.Is(err, errStore) {
		t.Errorf("expected store error to surface, got %v", err)
	}
}
