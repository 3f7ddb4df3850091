package redis

import "github.com/redis/rueidis"

// NewRegistryForTest creates a Registry with the provided rueidis client
// (test-only).
func NewRegistryForTest(c rueidis.Client, app, key string) *Registry {
	return &Registry{app: app, client: c, key: key}
}
