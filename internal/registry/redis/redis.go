// Package redis implements a Redis-backed service registry via rueidis.
// Source endpoints live in a hash per application keyed
// {prefix}:app:{app}:sources, field = source name, value = endpoint URL.
// Lookups are fresh per call: backends may register and deregister at runtime.
package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

const defaultKeyPrefix = "retrievex"

// Config holds connection parameters for a Redis registry.
type Config struct {
	App       string
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Registry resolves source names from a Redis hash.
type Registry struct {
	app    string
	client rueidis.Client
	key    string
}

// New creates a Redis registry.
func New(cfg Config) (*Registry, error) {
	if cfg.App == "" {
		return nil, fmt.Errorf("app name is required")
	}
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Registry{
		app:    cfg.App,
		client: client,
		key:    fmt.Sprintf("%s:app:%s:sources", prefix, cfg.App),
	}, nil
}

// Resolve fetches the registered endpoints for the application and returns
// those matching the selector. Explicitly named sources missing from the
// hash fail with an unknown source error.
func (r *Registry) Resolve(ctx context.Context, sel source.Selector) ([]source.Endpoint, error) {
	cmd := r.client.B().Hgetall().Key(r.key).Build()
	registered, err := r.client.Do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("fetch source registrations for app %q: %w", r.app, err)
	}

	if sel.IsAll() {
		resolved := make([]source.Endpoint, 0, len(registered))
		for name, url := range registered {
			resolved = append(resolved, source.Endpoint{Name: name, URL: url})
		}
		sort.Slice(resolved, func(i, j int) bool { return resolved[i].Name < resolved[j].Name })
		return resolved, nil
	}

	resolved := make([]source.Endpoint, 0, len(sel.List()))
	for _, name := range sel.List() {
		url, ok := registered[name]
		if !ok {
			return nil, domain.NewUnknownSource(r.app, name)
		}
		resolved = append(resolved, source.Endpoint{Name: name, URL: url})
	}
	return resolved, nil
}

// Register adds or updates one source endpoint. Used by operational tooling;
// the aggregator itself only reads.
func (r *Registry) Register(ctx context.Context, name, url string) error {
	cmd := r.client.B().Hset().Key(r.key).FieldValue().FieldValue(name, url).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("register source %q: %w", name, err)
	}
	return nil
}

// Deregister removes one source endpoint.
func (r *Registry) Deregister(ctx context.Context, name string) error {
	cmd := r.client.B().Hdel().Key(r.key).Field(name).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("deregister source %q: %w", name, err)
	}
	return nil
}

// Ping checks connectivity.
func (r *Registry) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the registry responds or timeout expires.
func (r *Registry) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for registry: %w", ctx.Err())
		case <-ticker.C:
			if err := r.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close shuts down the client.
func (r *Registry) Close() {
	r.client.Close()
}
