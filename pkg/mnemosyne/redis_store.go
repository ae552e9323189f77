package mnemosyne

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/argos-watch/argos/pkg/domain"
)

const keyPrefix = "argos:container:"

// RedisStore persists tracked-container records as JSON values in Redis,
// one key per container.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, db int, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func containerKey(id domain.ContainerID) string {
	return keyPrefix + string(id)
}

func (s *RedisStore) Get(ctx context.Context, id domain.ContainerID) (*domain.TrackedContainer, error) {
	val, err := s.client.Get(ctx, containerKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotTracked
		}
		return nil, fmt.Errorf("failed to get tracked container %s: %w", id, err)
	}

	var rec domain.TrackedContainer
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tracked container %s: %w", id, err)
	}
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec domain.TrackedContainer) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal tracked container %s: %w", rec.ID, err)
	}

	if err := s.client.Set(ctx, containerKey(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store tracked container %s: %w", rec.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id domain.ContainerID) error {
	if err := s.client.Del(ctx, containerKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete tracked container %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.TrackedContainer, error) {
	var list []domain.TrackedContainer
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()

	for iter.Next(ctx) {
		val, err := s.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Key deleted during iteration
			}
			return nil, fmt.Errorf("failed to get key %s: %w", iter.Val(), err)
		}

		var rec domain.TrackedContainer
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			// Skip corrupt entries; the container will be re-seeded.
			continue
		}
		list = append(list, rec)
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan tracked containers: %w", err)
	}

	return list, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
