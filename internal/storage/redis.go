package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/samber/mo"
)

const defaultRedisPrefix = "cachestorage:"

// Redis stores items as plain string keys under a shared prefix. It is an
// alternative Local host when several machines need one namespace.
type Redis struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces the keys; defaults to "cachestorage:".
	Prefix string
	// Timeout bounds each call; defaults to three seconds.
	Timeout time.Duration
}

// OpenRedis connects to the server described by opts and pings it.
func OpenRedis(opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	r := &Redis{client: client, prefix: opts.Prefix, timeout: opts.Timeout}
	if r.prefix == "" {
		r.prefix = defaultRedisPrefix
	}
	if r.timeout <= 0 {
		r.timeout = 3 * time.Second
	}

	ctx, cancel := r.context()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return r, nil
}

func (r *Redis) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) GetItem(key string) (mo.Option[string], error) {
	ctx, cancel := r.context()
	defer cancel()
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return mo.None[string](), nil
	}
	if err != nil {
		return mo.None[string](), err
	}
	return mo.Some(v), nil
}

func (r *Redis) SetItem(key, value string) error {
	ctx, cancel := r.context()
	defer cancel()
	return r.client.Set(ctx, r.key(key), value, 0).Err()
}

func (r *Redis) RemoveItem(key string) error {
	ctx, cancel := r.context()
	defer cancel()
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis) Keys() ([]string, error) {
	ctx, cancel := r.context()
	defer cancel()
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
