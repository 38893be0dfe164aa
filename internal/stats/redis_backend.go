package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend shares counters between gateway replicas. Each model is a hash under
// prefix+"usage:"+model and the model names are kept in the set prefix+"models".
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects and pings the server.
func NewRedisBackend(ctx context.Context, addr, password string, db int, prefix string) (*RedisBackend, error) {
	if prefix == "" {
		prefix = "ocigw:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisBackend{client: client, prefix: prefix}, nil
}

func (r *RedisBackend) modelsKey() string            { return r.prefix + "models" }
func (r *RedisBackend) usageKey(model string) string { return r.prefix + "usage:" + model }

func (r *RedisBackend) Increment(ctx context.Context, model string, deltas map[string]int64) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, r.modelsKey(), model)
		for field, d := range deltas {
			if d != 0 {
				p.HIncrBy(ctx, r.usageKey(model), field, d)
			}
		}
		return nil
	})
	return err
}

func (r *RedisBackend) Snapshot(ctx context.Context) (map[string]map[string]int64, error) {
	names, err := r.client.SMembers(ctx, r.modelsKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]int64, len(names))
	for _, model := range names {
		raw, err := r.client.HGetAll(ctx, r.usageKey(model)).Result()
		if err != nil {
			return nil, err
		}
		row := make(map[string]int64, len(raw))
		for k, v := range raw {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				continue
			}
			row[k] = n
		}
		out[model] = row
	}
	return out, nil
}

func (r *RedisBackend) Reset(ctx context.Context) error {
	names, err := r.client.SMembers(ctx, r.modelsKey()).Result()
	if err != nil {
		return err
	}
	keys := []string{r.modelsKey()}
	for _, model := range names {
		keys = append(keys, r.usageKey(model))
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisBackend) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
