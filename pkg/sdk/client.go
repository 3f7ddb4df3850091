package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultProcessType = "worker"
	defaultPort        = 5000
	defaultTimeout     = 30 * time.Second

	maxResponseBytes = 16 << 20
)

// Client talks to a retrievex aggregation service over HTTP.
type Client struct {
	searchURL string
	token     string
	http      *http.Client
	logger    *zap.Logger

	services      []serviceEntry
	rerank        *rerankParams
	grading       *bool
	decomposition *bool
}

// New builds a Client from options. Either WithApp or WithBaseURL is
// required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		processType: defaultProcessType,
		port:        defaultPort,
		timeout:     defaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	searchURL, err := buildSearchURL(cfg)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport
	if cfg.insecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	c := &Client{
		searchURL: searchURL,
		token:     cfg.token,
		http: &http.Client{
			Timeout:   cfg.timeout,
			Transport: transport,
		},
		logger:        cfg.logger,
		services:      buildServiceEntries(cfg),
		rerank:        cfg.rerank,
		grading:       cfg.grading,
		decomposition: cfg.decomposition,
	}

	checkDNS(c.searchURL, cfg.logger)
	return c, nil
}

func buildSearchURL(cfg *clientConfig) (string, error) {
	if cfg.baseURL != "" {
		return strings.TrimRight(cfg.baseURL, "/") + "/search", nil
	}
	if cfg.app == "" {
		return "", errors.New("sdk: app required (use WithApp or WithBaseURL)")
	}
	host := fmt.Sprintf("%s.%s.app.localspace", cfg.processType, cfg.app)
	if cfg.specificDyno != "" {
		host = cfg.specificDyno + "." + host
	}
	return fmt.Sprintf("http://%s:%d/search", host, cfg.port), nil
}

// checkDNS pre-resolves the service host so misconfiguration surfaces
// early. Failures are logged, never fatal.
func checkDNS(rawURL string, logger *zap.Logger) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	host := u.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
		logger.Warn("service host did not resolve",
			zap.String("host", host),
			zap.Error(err))
	}
}

func buildServiceEntries(cfg *clientConfig) []serviceEntry {
	names := cfg.services
	if len(names) == 0 {
		// Per-service settings without an explicit selection still query
		// everything: the "all" entry keeps the selection open while the
		// named entries carry the overrides.
		set := map[string]struct{}{}
		for name := range cfg.maxDocuments {
			set[name] = struct{}{}
		}
		for name := range cfg.confidenceThresholds {
			set[name] = struct{}{}
		}
		for name := range cfg.filters {
			set[name] = struct{}{}
		}
		if len(set) == 0 {
			if cfg.allServices {
				return []serviceEntry{{Service: "all"}}
			}
			return nil
		}
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		names = append([]string{"all"}, names...)
	}

	entries := make([]serviceEntry, 0, len(names))
	for _, name := range names {
		entry := serviceEntry{Service: name}
		if limit, ok := cfg.maxDocuments[name]; ok {
			v := limit
			entry.MaxDocuments = &v
		}
		if threshold, ok := cfg.confidenceThresholds[name]; ok {
			v := threshold
			entry.ConfidenceThreshold = &v
		}
		if filter, ok := cfg.filters[name]; ok {
			f := filter
			entry.Filter = &f
		}
		entries = append(entries, entry)
	}
	return entries
}

// Retrieve queries the service and returns the merged documents together
// with any non-fatal warnings the service reported.
func (c *Client) Retrieve(ctx context.Context, query, user string) ([]Document, []Warning, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, errors.New("sdk: query must not be empty")
	}

	payload := searchRequest{
		Query:         query,
		User:          user,
		Services:      c.services,
		Rerank:        c.rerank,
		Grading:       c.grading,
		Decomposition: c.decomposition,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("sdk: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("sdk: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sdk: %s: %w", c.searchURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("sdk: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, nil, fmt.Errorf("sdk: %s: %s", apiErr.Code, apiErr.Message)
		}
		return nil, nil, fmt.Errorf("sdk: unexpected status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("sdk: decode response: %w", err)
	}

	for _, w := range out.Warnings {
		c.logger.Warn("retrieval warning",
			zap.String("stage", w.Stage),
			zap.String("source", w.Source),
			zap.String("message", w.Message))
	}
	return out.Documents, out.Warnings, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
