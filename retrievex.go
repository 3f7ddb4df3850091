// Package retrievex is a multi-source retrieval aggregator: one query fans
// out to every resolved backend search source concurrently, per-source
// filtering and cross-source merge produce a single ordered document list,
// and optional decomposition, rerank, and grading stages enrich the result.
package retrievex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
	registryRedis "github.com/kailas-cloud/retrievex/internal/registry/redis"
	registryStatic "github.com/kailas-cloud/retrievex/internal/registry/static"
	"github.com/kailas-cloud/retrievex/internal/transport/httpsource"
	llm "github.com/kailas-cloud/retrievex/internal/transport/openai"
	"github.com/kailas-cloud/retrievex/internal/usecase/retrieve"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the retrievex entry point. Configuration is fixed at
// construction; a Client is safe for concurrent use.
type Client struct {
	svc      *retrieve.Service
	closeReg func()
}

// New creates a Client. The provided context is used for the registry
// readiness check when the Redis driver is selected.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:              "static",
		defaultMaxDocuments: 10,
		timeout:             retrieve.DefaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.app == "" {
		return nil, errors.New("retrievex: app name required (use WithApp)")
	}
	if cfg.driver == "static" && len(cfg.sources) == 0 {
		return nil, errors.New("retrievex: at least one source required (use WithSource)")
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	set, err := buildSourceSet(cfg)
	if err != nil {
		return nil, err
	}

	registry, closeReg, err := createRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	searcher := httpsource.New(httpsource.Config{
		Token:              cfg.sourceToken,
		InsecureSkipVerify: cfg.insecureSkipVerify,
		Logger:             cfg.logger,
	})

	svc := retrieve.New(registry, searcher, set, cfg.logger).
		WithTimeout(cfg.timeout).
		WithGrading(cfg.grading)

	if len(cfg.selectNames) > 0 {
		svc.WithSelector(source.Names(cfg.selectNames...))
	}

	if d := buildDecomposer(cfg); d != nil {
		svc.WithDecomposition(d)
	}
	if r := buildReranker(cfg); r != nil {
		svc.WithRerank(r, cfg.rerankMaxDocuments, cfg.rerankMinConfidence)
	}

	return &Client{svc: svc, closeReg: closeReg}, nil
}

// Retrieve runs one query across all resolved sources. user optionally
// identifies the caller towards the backends. Individual source failures
// degrade the result and surface as warnings; the call errors only for an
// unknown explicit source or when every source fails.
func (c *Client) Retrieve(ctx context.Context, query, user string) (Response, error) {
	resp, err := c.svc.Retrieve(ctx, query, user)
	if err != nil {
		return Response{}, err
	}

	out := Response{
		Documents: make([]Document, 0, len(resp.Documents)),
		Grading:   resp.Grading,
	}
	for _, d := range resp.Documents {
		out.Documents = append(out.Documents, Document{PageContent: d.PageContent, Metadata: d.Metadata})
	}
	for _, w := range resp.Warnings {
		out.Warnings = append(out.Warnings, Warning{
			Stage:   string(w.Stage),
			Source:  w.Source,
			Message: w.Message,
		})
	}
	return out, nil
}

// Close releases registry resources. Safe to call on any Client.
func (c *Client) Close() {
	if c.closeReg != nil {
		c.closeReg()
	}
}

func createRegistry(ctx context.Context, cfg *clientConfig) (retrieve.Registry, func(), error) {
	switch cfg.driver {
	case "static":
		endpoints := make(map[string]string, len(cfg.sources))
		for name, sc := range cfg.sources {
			endpoints[name] = sc.Endpoint
		}
		reg, err := registryStatic.New(registryStatic.Config{
			App:       cfg.app,
			Endpoints: endpoints,
			Process:   cfg.process,
			Port:      cfg.port,
			Logger:    cfg.logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("retrievex: create static registry: %w", err)
		}
		return reg, nil, nil

	case "redis":
		reg, err := registryRedis.New(registryRedis.Config{
			App:       cfg.app,
			Addrs:     cfg.redisAddrs,
			Username:  cfg.redisUsername,
			Password:  cfg.redisPassword,
			DB:        cfg.redisDB,
			KeyPrefix: cfg.redisPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("retrievex: create redis registry: %w", err)
		}
		if err := reg.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			reg.Close()
			return nil, nil, fmt.Errorf("retrievex: registry not ready: %w", err)
		}
		return reg, reg.Close, nil

	default:
		return nil, nil, fmt.Errorf("retrievex: unknown registry driver %q", cfg.driver)
	}
}

func buildSourceSet(cfg *clientConfig) (source.Set, error) {
	configs := make(map[string]source.Config, len(cfg.sources))
	for name, sc := range cfg.sources {
		expr, err := buildFilter(sc.Filter)
		if err != nil {
			return source.Set{}, fmt.Errorf("retrievex: source %q filter: %w", name, err)
		}
		configs[name] = source.NewConfig(sc.MaxDocuments, sc.MinConfidence, expr)
	}
	return source.NewSet(configs, cfg.defaultMaxDocuments, cfg.defaultMinConfidence), nil
}

func buildFilter(f *Filter) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}
	must, err := buildConditions(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := buildConditions(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := buildConditions(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, should, mustNot)
}

func buildConditions(conditions []Condition) ([]filter.Condition, error) {
	if len(conditions) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(conditions))
	for _, c := range conditions {
		fc, err := filter.NewCondition(c.Key, filter.Op(c.Op), c.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, nil
}

func buildDecomposer(cfg *clientConfig) retrieve.Decomposer {
	if cfg.decomposer != nil {
		return cfg.decomposer
	}
	if cfg.decompositionModel == "" {
		return nil
	}
	return llm.NewDecomposer(&llm.Config{
		APIKey:        cfg.llmAPIKey,
		BaseURL:       cfg.llmBaseURL,
		Model:         cfg.decompositionModel,
		MaxSubqueries: cfg.maxSubqueries,
		Logger:        cfg.logger,
	})
}

func buildReranker(cfg *clientConfig) retrieve.Reranker {
	if cfg.reranker != nil {
		return &rerankerAdapter{inner: cfg.reranker}
	}
	if !cfg.rerankEnabled || cfg.rerankModel == "" {
		return nil
	}
	return llm.NewReranker(&llm.Config{
		APIKey:  cfg.llmAPIKey,
		BaseURL: cfg.llmBaseURL,
		Model:   cfg.rerankModel,
		Logger:  cfg.logger,
	})
}

// rerankerAdapter bridges the public Reranker interface to the engine's.
type rerankerAdapter struct {
	inner Reranker
}

func (a *rerankerAdapter) Rerank(
	ctx context.Context, query string, docs []domain.Document,
) ([]retrieve.RankedItem, error) {
	public := make([]Document, 0, len(docs))
	for _, d := range docs {
		public = append(public, Document{PageContent: d.PageContent, Metadata: d.Metadata})
	}
	items, err := a.inner.Rerank(ctx, query, public)
	if err != nil {
		return nil, err
	}
	out := make([]retrieve.RankedItem, 0, len(items))
	for _, item := range items {
		out = append(out, retrieve.RankedItem{Index: item.Index, Score: item.Score})
	}
	return out, nil
}
