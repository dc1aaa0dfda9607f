package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payout-invoice-backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const runKeyPrefix = "payout:run:"

// RedisRunStore shares runs between instances. Expiry is left to Redis.
type RedisRunStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisRunStore(client redis.Cmdable, ttl time.Duration) *RedisRunStore {
	return &RedisRunStore{client: client, ttl: ttl}
}

func (s *RedisRunStore) Save(ctx context.Context, run *models.ValidationRun) error {
	payload, err := msgpack.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}
	if err := s.client.Set(ctx, runKeyPrefix+run.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store run %s: %w", run.ID, err)
	}
	return nil
}

func (s *RedisRunStore) Get(ctx context.Context, id string) (*models.ValidationRun, error) {
	payload, err := s.client.Get(ctx, runKeyPrefix+id).Bytes()
	return decodeRun(id, payload, err)
}

// Take uses GETDEL so two concurrent generate calls cannot both consume the run.
func (s *RedisRunStore) Take(ctx context.Context, id string) (*models.ValidationRun, error) {
	payload, err := s.client.GetDel(ctx, runKeyPrefix+id).Bytes()
	return decodeRun(id, payload, err)
}

func (s *RedisRunStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, runKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}

func decodeRun(id string, payload []byte, err error) (*models.ValidationRun, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	var run models.ValidationRun
	if err := msgpack.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &run, nil
}
