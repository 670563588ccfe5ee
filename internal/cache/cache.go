// Package cache keeps the last factor snapshot in Redis or a local file so
// restarts and sibling instances can serve data without hitting the backend.
package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"FactorPulse/internal/model"
)

// DefaultKey is the Redis key holding the latest snapshot.
const DefaultKey = "factorpulse:snapshot"

// SnapshotCache stores and loads the latest factor snapshot.
// Get reports a miss with ok=false and a nil error.
type SnapshotCache interface {
	Get(ctx context.Context) (snap *model.FactorSnapshot, ok bool, err error)
	Set(ctx context.Context, snap *model.FactorSnapshot) error
	Close() error
}

// RedisOptions configures the Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Key      string
}

// Redis is a SnapshotCache backed by go-redis. A nil *Redis always misses.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	key    string
	log    zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, opts RedisOptions, log zerolog.Logger) (*Redis, error) {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}

	log.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return &Redis{
		client: client,
		ttl:    opts.TTL,
		key:    opts.Key,
		log:    log.With().Str("component", "cache").Logger(),
	}, nil
}

// Get loads the cached snapshot.
func (r *Redis) Get(ctx context.Context) (*model.FactorSnapshot, bool, error) {
	if r == nil || r.client == nil {
		return nil, false, nil
	}
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Set stores snap with the configured TTL.
func (r *Redis) Set(ctx context.Context, snap *model.FactorSnapshot) error {
	if r == nil || r.client == nil {
		return nil
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	r.log.Debug().Int("bytes", len(data)).Int("records", len(snap.Records)).Msg("snapshot cached")
	return nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Noop is a SnapshotCache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context) (*model.FactorSnapshot, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, *model.FactorSnapshot) error { return nil }
func (Noop) Close() error { return nil }

// Encode serializes a snapshot with msgpack, keyed by the JSON field names.
func Encode(snap *model.FactorSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*model.FactorSnapshot, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var snap model.FactorSnapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
