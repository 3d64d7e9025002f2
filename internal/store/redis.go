package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "tgforge:run:"
	indexKey  = "tgforge:runs"
)

// Redis stores records as JSON documents with an expiry, plus a sorted set
// of ids scored by submission time.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to url and pings the server.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Save writes rec and refreshes its expiry.
func (r *Redis) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", rec.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+rec.ID, data, r.ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(rec.Submitted.UnixNano()), Member: rec.ID})

		return nil
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}

	return nil
}

// Get loads one record.
func (r *Redis) Get(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}

	return &rec, nil
}

// List returns every live record, newest first. Ids whose document expired
// are removed from the index.
func (r *Redis) List(ctx context.Context) ([]*Record, error) {
	ids, err := r.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	out := make([]*Record, 0, len(ids))

	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			r.client.ZRem(ctx, indexKey, id)

			continue
		}

		if err != nil {
			return nil, err
		}

		out = append(out, rec)
	}

	return out, nil
}

// Delete removes a record.
func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}

	r.client.ZRem(ctx, indexKey, id)

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
