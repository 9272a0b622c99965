package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

type RedisOpts struct {
	Addr, Password, Prefix string
	DB                     int
	Timeout                time.Duration
}

// RedisStore keeps each record under prefix:taskName as a JSON string.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(o RedisOpts) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.Timeout,
		ReadTimeout:  o.Timeout,
		WriteTimeout: o.Timeout,
	})
	prefix := strings.TrimSpace(o.Prefix)
	if prefix == "" {
		prefix = "beaconflow:results"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) key(k string) string { return r.prefix + ":" + k }

func (r *RedisStore) Publish(ctx context.Context, key string, rec *domain.ResultRecord) error {
	if rec == nil {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return r.rdb.Set(ctx, r.key(key), b, 0).Err()
}

func (r *RedisStore) Consume(ctx context.Context, key string) (*domain.ResultRecord, bool, error) {
	val, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var rec domain.ResultRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, false, fmt.Errorf("decode record %s: %w", key, err)
	}
	return &rec, true, nil
}

func (r *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := r.rdb.Scan(ctx, cursor, r.prefix+":*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, r.prefix+":"))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Clear(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

func (r *RedisStore) Close() error { return r.rdb.Close() }

var _ ports.ResultChannel = (*RedisStore)(nil)
