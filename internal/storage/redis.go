package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// setScript writes one hash field while keeping a byte counter for the quota.
// Returns 0 when the write would exceed the limit.
var setScript = redis.NewScript(`
local oldSize = 0
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
	oldSize = #ARGV[1] + redis.call('HSTRLEN', KEYS[1], ARGV[1])
end
local newSize = #ARGV[1] + #ARGV[2]
local used = tonumber(redis.call('GET', KEYS[2]) or '0')
local limit = tonumber(ARGV[3])
if limit > 0 and used - oldSize + newSize > limit then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('INCRBY', KEYS[2], newSize - oldSize)
redis.call('PUBLISH', ARGV[4], ARGV[5])
return 1
`)

var removeScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
	return 0
end
local size = #ARGV[1] + redis.call('HSTRLEN', KEYS[1], ARGV[1])
redis.call('HDEL', KEYS[1], ARGV[1])
redis.call('DECRBY', KEYS[2], size)
redis.call('PUBLISH', ARGV[2], ARGV[3])
return 1
`)

// Redis keeps the namespace in one hash and publishes each write on a channel
type Redis struct {
	client     *redis.Client
	hashKey    string
	usageKey   string
	channel    string
	origin     string
	quotaBytes int64
	logger     *slog.Logger
}

// NewRedis connects to the server at redisURL and verifies it responds
func NewRedis(ctx context.Context, redisURL, namespace string, quotaBytes int64, logger *slog.Logger) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisWithClient(client, namespace, quotaBytes, logger), nil
}

func newRedisWithClient(client *redis.Client, namespace string, quotaBytes int64, logger *slog.Logger) *Redis {
	base := "offeradmin:{" + namespace + "}"
	return &Redis{
		client:     client,
		hashKey:    base,
		usageKey:   base + ":usage",
		channel:    base + ":changes",
		origin:     uuid.New().String(),
		quotaBytes: quotaBytes,
		logger:     logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.HGet(ctx, r.hashKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrNotFound
	}
	return value, wrapErr("get", key, err)
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	ok, err := setScript.Run(ctx, r.client,
		[]string{r.hashKey, r.usageKey},
		key, value, r.quotaBytes, r.channel, r.event(key),
	).Int()
	if err != nil {
		return wrapErr("set", key, err)
	}
	if ok == 0 {
		return &models.StorageError{Op: "set", Key: key, Err: models.ErrStorageQuotaExceeded}
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	err := removeScript.Run(ctx, r.client,
		[]string{r.hashKey, r.usageKey},
		key, r.channel, r.event(key),
	).Err()
	return wrapErr("remove", key, err)
}

func (r *Redis) Clear(ctx context.Context) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.hashKey, r.usageKey)
		pipe.Publish(ctx, r.channel, r.event(""))
		return nil
	})
	return wrapErr("clear", "", err)
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Watch subscribes to the namespace channel until ctx is cancelled
func (r *Redis) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}

	ch := make(chan ChangeEvent, 16)
	go func() {
		defer close(ch)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					r.logger.Warn("redis change subscription closed")
					return
				}
				ev, valid := decodeEvent(msg.Payload)
				if !valid || ev.Origin == r.origin {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (r *Redis) event(key string) string {
	return encodeEvent(ChangeEvent{Key: key, Origin: r.origin})
}
