package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/redis/go-redis/v9"
)

var _ credentials.Store = (*Store)(nil)

// ErrRedisUnavailable wraps connection failures so callers can tell them from a missing record.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store keeps the record as one Redis hash at "<prefix>:credentials", one field per
// credential key. Writes replace the hash inside MULTI/EXEC so the fields share a single
// TTL and expire together.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New wraps an existing client. A ttl of zero keeps the keys until Clear.
func New(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "authclient"
	}
	return &Store{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Dial connects to addr and verifies the server is reachable.
func Dial(ctx context.Context, addr, prefix string, ttl time.Duration) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("[redisstore Dial] %s: %v: %w", addr, err, ErrRedisUnavailable)
	}
	return New(rdb, prefix, ttl), nil
}

func (s *Store) Close() error { return s.rdb.Close() }

// Key is the hash holding the record.
func (s *Store) Key() string {
	return s.prefix + ":credentials"
}

func (s *Store) Write(ctx context.Context, pair credentials.Pair, profile users.Profile) error {
	rec, err := credentials.NewRecord(pair, profile)
	if err != nil {
		return err
	}
	values, err := rec.Values()
	if err != nil {
		return err
	}

	fields := make([]interface{}, 0, 2*len(credentials.Keys))
	for _, k := range credentials.Keys {
		if values[k] == "" {
			continue
		}
		fields = append(fields, k, values[k])
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.Key())
		pipe.HSet(ctx, s.Key(), fields...)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.Key(), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redisstore Write] %v: %w", err, ErrRedisUnavailable)
	}
	return nil
}

func (s *Store) Read(ctx context.Context) (credentials.Record, error) {
	values, err := s.rdb.HGetAll(ctx, s.Key()).Result()
	if err != nil {
		return credentials.Record{}, fmt.Errorf("[redisstore Read] %v: %w", err, ErrRedisUnavailable)
	}
	return credentials.RecordFromValues(values)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("[redisstore Clear] %v: %w", err, ErrRedisUnavailable)
	}
	return nil
}
