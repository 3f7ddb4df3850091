// Package static implements a configuration-backed service registry.
// Endpoints come from a fixed name->URL map, optionally filled in from a DNS
// service-discovery template of the form used by the platform scheduler:
//
//	http://{source}.{process}.{app}.app.localspace:{port}/search
package static

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// Config holds static registry settings.
type Config struct {
	// App is the application identifier sources are registered under.
	App string
	// Endpoints maps source names to explicit endpoint URLs.
	Endpoints map[string]string
	// Process and Port fill the DNS template for sources without an explicit
	// endpoint. Process defaults to "worker", Port to 5000.
	Process string
	Port    int
	Logger  *zap.Logger
}

// Registry resolves source names from a fixed configuration map.
type Registry struct {
	app       string
	endpoints map[string]string
	logger    *zap.Logger
}

// New creates a static registry. Sources without an explicit endpoint get one
// derived from the DNS template.
func New(cfg Config) (*Registry, error) {
	if cfg.App == "" {
		return nil, fmt.Errorf("app name is required")
	}
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one source endpoint is required")
	}

	process := cfg.Process
	if process == "" {
		process = "worker"
	}
	port := cfg.Port
	if port == 0 {
		port = 5000
	}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for name, url := range cfg.Endpoints {
		if url == "" {
			url = fmt.Sprintf("http://%s.%s.%s.app.localspace:%d/search",
				strings.ToLower(name), process, cfg.App, port)
		}
		endpoints[name] = url
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{app: cfg.App, endpoints: endpoints, logger: logger}, nil
}

// Resolve returns the endpoints matching the selector. Explicitly named
// sources that are not registered fail with an unknown source error.
func (r *Registry) Resolve(ctx context.Context, sel source.Selector) ([]source.Endpoint, error) {
	if sel.IsAll() {
		resolved := make([]source.Endpoint, 0, len(r.endpoints))
		for name, url := range r.endpoints {
			resolved = append(resolved, source.Endpoint{Name: name, URL: url})
		}
		sort.Slice(resolved, func(i, j int) bool { return resolved[i].Name < resolved[j].Name })
		r.checkDNS(ctx, resolved)
		return resolved, nil
	}

	resolved := make([]source.Endpoint, 0, len(sel.List()))
	for _, name := range sel.List() {
		url, ok := r.endpoints[name]
		if !ok {
			return nil, domain.NewUnknownSource(r.app, name)
		}
		resolved = append(resolved, source.Endpoint{Name: name, URL: url})
	}
	r.checkDNS(ctx, resolved)
	return resolved, nil
}

// checkDNS confirms the endpoint hosts resolve. Best effort: a failed lookup
// is logged at warn and never blocks dispatch, since the transport will
// surface the real failure per source.
func (r *Registry) checkDNS(ctx context.Context, endpoints []source.Endpoint) {
	for _, ep := range endpoints {
		host := hostOf(ep.URL)
		if host == "" {
			continue
		}
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			r.logger.Warn("dns resolution check failed",
				zap.String("source", ep.Name),
				zap.String("host", host),
				zap.Error(err),
			)
		}
	}
}

func hostOf(rawURL string) string {
	rest := rawURL
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if host, _, err := net.SplitHostPort(rest); err == nil {
		return host
	}
	return rest
}
