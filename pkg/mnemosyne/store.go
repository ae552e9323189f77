// Package mnemosyne persists per-container activity records. The watcher
// only needs a small keyed mapping; the Redis backend makes it durable
// across restarts, the memory backend simply re-seeds every container as
// newly tracked after a restart.
package mnemosyne

import (
	"context"
	"errors"

	"github.com/argos-watch/argos/pkg/domain"
)

// ErrNotTracked is returned by Get when no record exists for the container.
var ErrNotTracked = errors.New("container not tracked")

type Store interface {
	Get(ctx context.Context, id domain.ContainerID) (*domain.TrackedContainer, error)
	Put(ctx context.Context, rec domain.TrackedContainer) error
	Delete(ctx context.Context, id domain.ContainerID) error
	List(ctx context.Context) ([]domain.TrackedContainer, error)
	Close() error
}
