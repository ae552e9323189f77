// Package panoptes drives the poll loop: discover containers, feed their
// network totals through the activity tracker, and stop the owning Nomad
// job when a container has been idle past the timeout.
package panoptes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/argos-watch/argos/pkg/argus"
	"github.com/argos-watch/argos/pkg/domain"
	"github.com/argos-watch/argos/pkg/iris"
	"github.com/argos-watch/argos/pkg/metron"
	"github.com/argos-watch/argos/pkg/nomad"
)

// Runtime is the container-runtime query surface the watcher depends on.
// All three calls are synchronous and may fail.
type Runtime interface {
	ListContainers(ctx context.Context, filter string) ([]domain.ContainerID, error)
	ContainerName(ctx context.Context, id domain.ContainerID) (string, error)
	NetworkTotals(ctx context.Context, id domain.ContainerID) (rx, tx string, err error)
}

// JobStopper issues the orchestrator stop call.
type JobStopper interface {
	StopJob(ctx context.Context, job domain.JobName) (domain.StopOutcome, error)
}

// Watcher is the top-level poll orchestrator. Containers are processed one
// at a time within a cycle; there is deliberately no parallel fan-out and
// no per-call timeout in this layer.
type Watcher struct {
	Runtime  Runtime
	Stopper  JobStopper
	Tracker  *argus.Tracker
	Logger   iris.Logger
	Metrics  iris.Metrics
	Filter   string
	Interval time.Duration
	now      func() time.Time
}

// WatcherConfig holds the watcher's injected collaborators.
type WatcherConfig struct {
	Runtime  Runtime
	Stopper  JobStopper
	Tracker  *argus.Tracker
	Logger   iris.Logger
	Metrics  iris.Metrics
	Filter   string
	Interval time.Duration
}

func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		Runtime:  cfg.Runtime,
		Stopper:  cfg.Stopper,
		Tracker:  cfg.Tracker,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
		Filter:   cfg.Filter,
		Interval: cfg.Interval,
		now:      time.Now,
	}
}

// Run executes cycles until the context is cancelled. A failed cycle is
// logged and retried on the next tick; nothing short of cancellation stops
// the loop.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	if err := w.Cycle(ctx); err != nil {
		w.Metrics.IncCounter("argos_cycle_failures_total", 1)
		w.Logger.Error(ctx, "Cycle aborted, tracked state untouched", map[string]any{
			"error": err.Error(),
		})
	}
	w.Metrics.IncCounter("argos_cycles_total", 1)
}

// Cycle runs one discovery-poll-reconcile pass. A discovery failure aborts
// the whole cycle without touching any tracked state; per-container
// failures drop only that container.
func (w *Watcher) Cycle(ctx context.Context) error {
	cycleID := uuid.NewString()

	ids, err := w.Runtime.ListContainers(ctx, w.Filter)
	if err != nil {
		return fmt.Errorf("container discovery failed: %w", err)
	}

	now := w.now()
	discovered := make(map[domain.ContainerID]bool, len(ids))

	for _, id := range ids {
		discovered[id] = true
		w.pollContainer(ctx, cycleID, id, now)
	}

	if err := w.reconcile(ctx, cycleID, discovered); err != nil {
		return err
	}

	if tracked, err := w.Tracker.TrackedIDs(ctx); err == nil {
		w.Metrics.SetGauge("argos_tracked_containers", float64(len(tracked)))
	}

	return nil
}

func (w *Watcher) pollContainer(ctx context.Context, cycleID string, id domain.ContainerID, now time.Time) {
	rx, tx, err := w.Runtime.NetworkTotals(ctx, id)
	if err != nil {
		// Presumed stopped; it will be re-seeded if it reappears.
		w.Metrics.IncCounter("argos_metric_fetch_failures_total", 1)
		w.Logger.Warn(ctx, "Metric fetch failed, dropping tracked state", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"error":        err.Error(),
		})
		if err := w.Tracker.Forget(ctx, id); err != nil {
			w.Logger.Error(ctx, "Failed to drop tracked state", map[string]any{
				"cycle_id":     cycleID,
				"container_id": id,
				"error":        err.Error(),
			})
		}
		return
	}

	total, ok := w.parseTotal(ctx, cycleID, id, rx, tx)
	if !ok {
		return
	}

	assessment, err := w.Tracker.Observe(ctx, id, total, now)
	if err != nil {
		w.Logger.Error(ctx, "Tracker observation failed", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"error":        err.Error(),
		})
		return
	}

	switch assessment.Kind {
	case argus.Seeded:
		w.Logger.Info(ctx, "Tracking new container", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"total_bytes":  total,
		})
	case argus.Activity:
		w.Logger.Info(ctx, "Significant activity, idle clock reset", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"delta_bytes":  assessment.Delta,
		})
	case argus.Idle:
		w.Logger.Info(ctx, "Idle, below timeout", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"delta_bytes":  assessment.Delta,
			"idle_for":     assessment.IdleFor.String(),
		})
	case argus.IdleTimeout:
		w.Metrics.IncCounter("argos_idle_timeouts_total", 1)
		w.Logger.Info(ctx, "Idle timeout reached", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"idle_for":     assessment.IdleFor.String(),
		})
		w.stopOwningJob(ctx, cycleID, id)
	}
}

// parseTotal resolves both human-readable counters into a summed byte
// total. An unknown unit is a warning, not an error; a garbled quantity is
// treated like a metric-fetch failure.
func (w *Watcher) parseTotal(ctx context.Context, cycleID string, id domain.ContainerID, rx, tx string) (int64, bool) {
	var total int64
	for _, raw := range []string{rx, tx} {
		q, err := metron.ParseByteQuantity(raw)
		if err != nil {
			w.Metrics.IncCounter("argos_metric_fetch_failures_total", 1)
			w.Logger.Warn(ctx, "Unparseable byte quantity, dropping tracked state", map[string]any{
				"cycle_id":     cycleID,
				"container_id": id,
				"quantity":     raw,
				"error":        err.Error(),
			})
			if err := w.Tracker.Forget(ctx, id); err != nil {
				w.Logger.Error(ctx, "Failed to drop tracked state", map[string]any{
					"cycle_id":     cycleID,
					"container_id": id,
					"error":        err.Error(),
				})
			}
			return 0, false
		}
		if q.UnknownUnit {
			w.Metrics.IncCounter("argos_parse_warnings_total", 1)
			w.Logger.Warn(ctx, "Unknown byte unit, assuming raw bytes", map[string]any{
				"cycle_id":     cycleID,
				"container_id": id,
				"unit":         q.Unit,
			})
		}
		total += q.Bytes
	}
	return total, true
}

// stopOwningJob derives the job name from the container's display name and
// issues exactly one stop attempt. Every failure path here is non-fatal:
// tracked state was already cleared by the idle-timeout transition.
func (w *Watcher) stopOwningJob(ctx context.Context, cycleID string, id domain.ContainerID) {
	name, err := w.Runtime.ContainerName(ctx, id)
	if err != nil {
		w.Logger.Warn(ctx, "Could not fetch container name, skipping stop", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
			"error":        err.Error(),
		})
		return
	}

	job, err := nomad.DeriveJobName(name)
	if err != nil {
		w.Metrics.IncCounter("argos_derivation_failures_total", 1)
		w.Logger.Warn(ctx, "No job name derivable, skipping stop", map[string]any{
			"cycle_id":       cycleID,
			"container_id":   id,
			"container_name": name,
		})
		return
	}

	outcome, err := w.Stopper.StopJob(ctx, job)
	w.Metrics.IncCounter("argos_stops_total", 1, iris.Label{Key: "outcome", Value: string(outcome)})

	fields := map[string]any{
		"cycle_id":     cycleID,
		"container_id": id,
		"job":          job,
		"outcome":      string(outcome),
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	switch {
	case outcome.Failed():
		w.Logger.Error(ctx, "Stop call did not land; not retried until a fresh idle cycle", fields)
	case outcome == domain.StopNotFound:
		w.Logger.Warn(ctx, "Job already absent", fields)
	default:
		w.Logger.Info(ctx, "Stop call issued", fields)
	}
}

// reconcile drops tracked state for containers absent from this cycle's
// discovery result. Disappearance cleanup, never a stop decision.
func (w *Watcher) reconcile(ctx context.Context, cycleID string, discovered map[domain.ContainerID]bool) error {
	tracked, err := w.Tracker.TrackedIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile tracked state: %w", err)
	}

	for _, id := range tracked {
		if discovered[id] {
			continue
		}
		w.Logger.Info(ctx, "Container disappeared, dropping tracked state", map[string]any{
			"cycle_id":     cycleID,
			"container_id": id,
		})
		if err := w.Tracker.Forget(ctx, id); err != nil {
			w.Logger.Error(ctx, "Failed to drop tracked state", map[string]any{
				"cycle_id":     cycleID,
				"container_id": id,
				"error":        err.Error(),
			})
		}
	}
	return nil
}
