// Package argus holds the per-container activity state machine. Idleness is
// measured from the last significant activity rather than the last poll, so
// background chatter below the threshold (keep-alives, health checks) never
// resets the clock, while real traffic resets it immediately.
package argus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/argos-watch/argos/pkg/domain"
	"github.com/argos-watch/argos/pkg/mnemosyne"
)

// Kind classifies the outcome of one observation.
type Kind string

const (
	// Seeded: first observation of an untracked container. Neither activity
	// nor idleness, it only establishes the baseline.
	Seeded Kind = "SEEDED"
	// Activity: the byte delta exceeded the threshold, idle clock reset.
	Activity Kind = "ACTIVITY"
	// Idle: below-threshold delta, idle duration still under the timeout.
	Idle Kind = "IDLE"
	// IdleTimeout: idle duration reached the timeout; tracked state has
	// been cleared and the caller should attempt a stop.
	IdleTimeout Kind = "IDLE_TIMEOUT"
)

// Assessment is the tracker's verdict for a single poll of one container.
type Assessment struct {
	Kind    Kind
	Delta   int64
	IdleFor time.Duration
}

// Tracker drives TrackedContainer records through their lifecycle.
type Tracker struct {
	store     mnemosyne.Store
	threshold int64
	timeout   time.Duration
}

func NewTracker(store mnemosyne.Store, activityThreshold int64, idleTimeout time.Duration) *Tracker {
	return &Tracker{
		store:     store,
		threshold: activityThreshold,
		timeout:   idleTimeout,
	}
}

// Observe feeds one cumulative byte total into the state machine and
// returns the resulting assessment. The delta may be negative after a
// counter reset (container restarted mid-monitoring); that is never
// significant activity and is measured against the idle timer like any
// other sub-threshold change.
func (t *Tracker) Observe(ctx context.Context, id domain.ContainerID, currentTotal int64, now time.Time) (Assessment, error) {
	rec, err := t.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, mnemosyne.ErrNotTracked) {
			seed := domain.TrackedContainer{
				ID:             id,
				LastTotalBytes: currentTotal,
				LastActiveAt:   now,
			}
			if err := t.store.Put(ctx, seed); err != nil {
				return Assessment{}, fmt.Errorf("failed to seed container %s: %w", id, err)
			}
			return Assessment{Kind: Seeded}, nil
		}
		return Assessment{}, fmt.Errorf("failed to load container %s: %w", id, err)
	}

	delta := currentTotal - rec.LastTotalBytes
	if delta > t.threshold {
		updated := domain.TrackedContainer{
			ID:             id,
			LastTotalBytes: currentTotal,
			LastActiveAt:   now,
		}
		if err := t.store.Put(ctx, updated); err != nil {
			return Assessment{}, fmt.Errorf("failed to refresh container %s: %w", id, err)
		}
		return Assessment{Kind: Activity, Delta: delta}, nil
	}

	idleFor := now.Sub(rec.LastActiveAt)
	if idleFor >= t.timeout {
		// Cleared regardless of what the stop attempt does next: a failed
		// stop is not retried until the container goes through a full fresh
		// idle cycle.
		if err := t.store.Delete(ctx, id); err != nil {
			return Assessment{}, fmt.Errorf("failed to clear container %s: %w", id, err)
		}
		return Assessment{Kind: IdleTimeout, Delta: delta, IdleFor: idleFor}, nil
	}

	return Assessment{Kind: Idle, Delta: delta, IdleFor: idleFor}, nil
}

// Forget drops tracked state without emitting any event. Used when a
// container disappears from discovery or its metrics cannot be fetched.
func (t *Tracker) Forget(ctx context.Context, id domain.ContainerID) error {
	if err := t.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to forget container %s: %w", id, err)
	}
	return nil
}

// TrackedIDs returns the ids currently held in the store, for reconciling
// against a discovery result.
func (t *Tracker) TrackedIDs(ctx context.Context) ([]domain.ContainerID, error) {
	recs, err := t.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked containers: %w", err)
	}

	ids := make([]domain.ContainerID, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}
