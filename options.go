package retrievex

import (
	"time"

	"go.uber.org/zap"
)

// clientConfig accumulates construction options.
type clientConfig struct {
	app     string
	process string
	port    int

	// registry driver: static (default) or redis
	driver        string
	redisAddrs    []string
	redisUsername string
	redisPassword string
	redisDB       int
	redisPrefix   string

	sources              map[string]SourceConfig
	defaultMaxDocuments  int
	defaultMinConfidence float64
	selectNames          []string // empty = all

	sourceToken        string
	timeout            time.Duration
	insecureSkipVerify bool
	grading            bool

	llmAPIKey          string
	llmBaseURL         string
	decompositionModel string
	maxSubqueries      int
	decomposer         Decomposer

	rerankModel         string
	rerankMaxDocuments  int
	rerankMinConfidence float64
	rerankEnabled       bool
	reranker            Reranker

	logger *zap.Logger
}

// Option configures the client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

// WithApp sets the application identifier sources are registered under.
func WithApp(app string) Option {
	return optionFunc(func(c *clientConfig) { c.app = app })
}

// WithDNSTemplate sets the process type and port used to derive endpoints
// for sources without an explicit one (static registry only).
func WithDNSTemplate(process string, port int) Option {
	return optionFunc(func(c *clientConfig) {
		c.process = process
		c.port = port
	})
}

// WithRedisRegistry switches source resolution to a Redis-backed registry,
// looked up fresh per call.
func WithRedisRegistry(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.redisAddrs = addrs
		c.redisPassword = password
	})
}

// WithSource registers one source with optional overrides. With the static
// registry an empty Endpoint derives one from the DNS template.
func WithSource(name string, cfg SourceConfig) Option {
	return optionFunc(func(c *clientConfig) {
		if c.sources == nil {
			c.sources = make(map[string]SourceConfig)
		}
		c.sources[name] = cfg
	})
}

// WithDefaults sets the call-wide max-documents and min-confidence defaults
// used by sources without overrides.
func WithDefaults(maxDocuments int, minConfidence float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultMaxDocuments = maxDocuments
		c.defaultMinConfidence = minConfidence
	})
}

// WithSelection restricts retrieval to an explicit source subset. Without it
// every registered source is queried.
func WithSelection(names ...string) Option {
	return optionFunc(func(c *clientConfig) { c.selectNames = names })
}

// WithSourceToken sets the bearer credential forwarded to backend sources.
func WithSourceToken(token string) Option {
	return optionFunc(func(c *clientConfig) { c.sourceToken = token })
}

// WithTimeout sets the per-source-request deadline (default 30s).
func WithTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.timeout = timeout })
}

// WithInsecureSkipVerify disables TLS certificate verification on source
// requests.
func WithInsecureSkipVerify() Option {
	return optionFunc(func(c *clientConfig) { c.insecureSkipVerify = true })
}

// WithGrading requests per-token confidence annotation from sources.
func WithGrading() Option {
	return optionFunc(func(c *clientConfig) { c.grading = true })
}

// WithLLM sets the OpenAI-compatible provider used by the decomposition and
// rerank capabilities.
func WithLLM(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.llmAPIKey = apiKey
		c.llmBaseURL = baseURL
	})
}

// WithDecomposition enables query decomposition with the given model.
// Requires WithLLM. Enabling decomposition forces grading on.
func WithDecomposition(model string, maxSubqueries int) Option {
	return optionFunc(func(c *clientConfig) {
		c.decompositionModel = model
		c.maxSubqueries = maxSubqueries
	})
}

// WithDecomposer enables query decomposition through a custom capability.
func WithDecomposer(d Decomposer) Option {
	return optionFunc(func(c *clientConfig) { c.decomposer = d })
}

// WithRerank enables the post-merge rerank stage with the given model.
// Requires WithLLM. maxDocuments caps the final sequence (0 = uncapped);
// minConfidence drops documents scoring strictly below it.
func WithRerank(model string, maxDocuments int, minConfidence float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerankModel = model
		c.rerankMaxDocuments = maxDocuments
		c.rerankMinConfidence = minConfidence
		c.rerankEnabled = true
	})
}

// WithReranker enables reranking through a custom capability.
func WithReranker(r Reranker, maxDocuments int, minConfidence float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.reranker = r
		c.rerankMaxDocuments = maxDocuments
		c.rerankMinConfidence = minConfidence
		c.rerankEnabled = true
	})
}

// WithLogger sets the logger (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = logger })
}
