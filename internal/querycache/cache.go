// Package querycache is the shared read cache sitting in front of every
// repository. Entries are keyed by the versions of the resources they depend
// on, so invalidating a resource makes every dependent entry unreachable.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix         = "qc"
	versionPrefix     = "qc:ver:"
	invalidateChannel = "shopdesk.invalidate"
)

// Listener is notified after resources have been invalidated.
type Listener func(ctx context.Context, resources []string)

// Cache wraps Redis based caching with per-resource versioning.
type Cache struct {
	client     *redis.Client
	ttl        time.Duration
	instanceID string
	logger     *slog.Logger

	group singleflight.Group

	mu        sync.RWMutex
	listeners []Listener
}

// New instantiates the cache. A nil client yields a pass-through cache that
// still dispatches invalidations to listeners.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, instanceID: uuid.NewString(), logger: logger}
}

// OnInvalidate registers a listener.
func (c *Cache) OnInvalidate(l Listener) {
	if c == nil || l == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Version returns the current version of a resource, initialising when missing.
func (c *Cache) Version(ctx context.Context, resource string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionPrefix + resource
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so that concurrent initialisers agree on the first version.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes a cache key from the versions of deps and the given parts.
func (c *Cache) Key(ctx context.Context, deps []string, parts ...string) (string, error) {
	segments := make([]string, 0, len(deps)+len(parts)+1)
	segments = append(segments, keyPrefix)
	segments = append(segments, parts...)
	for _, dep := range deps {
		ver, err := c.Version(ctx, dep)
		if err != nil {
			return "", fmt.Errorf("querycache: version %s: %w", dep, err)
		}
		segments = append(segments, dep+"@"+strconv.FormatInt(ver, 10))
	}
	return strings.Join(segments, ":"), nil
}

// FetchJSON loads a cached value into dest or populates it using loader.
// Concurrent loads of the same key share one loader call.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("querycache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("querycache read", slog.String("key", key), slog.Any("error", err))
		}
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c.client != nil {
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				c.logger.Warn("querycache write", slog.String("key", key), slog.Any("error", err))
			}
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Invalidate bumps the version of each resource, notifies local listeners and
// publishes the change for other instances.
func (c *Cache) Invalidate(ctx context.Context, resources ...string) error {
	if c == nil || len(resources) == 0 {
		return nil
	}
	if c.client != nil {
		pipe := c.client.TxPipeline()
		for _, res := range resources {
			pipe.Incr(ctx, versionPrefix+res)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("querycache: invalidate: %w", err)
		}
		msg := invalidation{Origin: c.instanceID, Resources: resources}
		if payload, err := json.Marshal(msg); err == nil {
			if err := c.client.Publish(ctx, invalidateChannel, payload).Err(); err != nil {
				c.logger.Warn("querycache publish", slog.Any("error", err))
			}
		}
	}
	c.notify(ctx, resources)
	return nil
}

// ListenForInvalidation forwards invalidations published by other instances
// to local listeners until ctx is cancelled.
func (c *Cache) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, invalidateChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("querycache: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var inv invalidation
				if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
					continue
				}
				if inv.Origin == c.instanceID {
					continue
				}
				c.notify(ctx, inv.Resources)
			}
		}
	}()
	return nil
}

func (c *Cache) notify(ctx context.Context, resources []string) {
	c.mu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.RUnlock()
	for _, l := range listeners {
		l(ctx, resources)
	}
}

type invalidation struct {
	Origin    string   `json:"origin"`
	Resources []string `json:"resources"`
}

// Load is the typed front door used by services: it builds the key from deps
// and parts, then fetches through the cache.
func Load[T any](ctx context.Context, c *Cache, deps []string, parts []string, loader func(context.Context) (T, error)) (T, error) {
	var out T
	if c == nil {
		return loader(ctx)
	}
	key, err := c.Key(ctx, deps, parts...)
	if err != nil {
		c.logger.Warn("querycache key", slog.Any("error", err))
		return loader(ctx)
	}
	err = c.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	return out, err
}
