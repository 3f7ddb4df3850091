package sdk

import (
	"time"

	"go.uber.org/zap"
)

type clientConfig struct {
	baseURL      string
	app          string
	processType  string
	port         int
	specificDyno string

	token              string
	timeout            time.Duration
	insecureSkipVerify bool

	services             []string
	allServices          bool
	maxDocuments         map[string]int
	confidenceThresholds map[string]float64
	filters              map[string]Filter

	rerank        *rerankParams
	grading       *bool
	decomposition *bool

	logger *zap.Logger
}

// Option configures the client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

// WithApp sets the application identifier used to build the service
// discovery URL. Required unless WithBaseURL is given.
func WithApp(app string) Option {
	return optionFunc(func(c *clientConfig) { c.app = app })
}

// WithBaseURL bypasses DNS service discovery with an explicit service URL.
func WithBaseURL(url string) Option {
	return optionFunc(func(c *clientConfig) { c.baseURL = url })
}

// WithProcessType sets the process type in the discovery DNS name
// (default "worker").
func WithProcessType(processType string) Option {
	return optionFunc(func(c *clientConfig) { c.processType = processType })
}

// WithPort sets the service port (default 5000).
func WithPort(port int) Option {
	return optionFunc(func(c *clientConfig) { c.port = port })
}

// WithSpecificDyno targets one dyno instead of round-robin DNS.
func WithSpecificDyno(dyno string) Option {
	return optionFunc(func(c *clientConfig) { c.specificDyno = dyno })
}

// WithToken sets the bearer credential sent with every request.
func WithToken(token string) Option {
	return optionFunc(func(c *clientConfig) { c.token = token })
}

// WithTimeout sets the request timeout (default 30s).
func WithTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.timeout = timeout })
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return optionFunc(func(c *clientConfig) { c.insecureSkipVerify = true })
}

// WithServices selects an explicit list of services to query. Without it
// (or with the single name "all") every registered service is queried.
func WithServices(names ...string) Option {
	return optionFunc(func(c *clientConfig) {
		if len(names) == 1 && names[0] == "all" {
			c.allServices = true
			return
		}
		c.services = names
	})
}

// WithServiceMaxDocuments sets per-service max document limits.
func WithServiceMaxDocuments(limits map[string]int) Option {
	return optionFunc(func(c *clientConfig) { c.maxDocuments = limits })
}

// WithServiceConfidenceThresholds sets per-service confidence thresholds.
func WithServiceConfidenceThresholds(thresholds map[string]float64) Option {
	return optionFunc(func(c *clientConfig) { c.confidenceThresholds = thresholds })
}

// WithServiceFilters sets per-service filter expressions.
func WithServiceFilters(filters map[string]Filter) Option {
	return optionFunc(func(c *clientConfig) { c.filters = filters })
}

// WithRerank enables reranking with a final document cap and confidence
// threshold.
func WithRerank(maxDocuments int, confidenceThreshold float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rerank = &rerankParams{
			MaxDocuments:        &maxDocuments,
			ConfidenceThreshold: &confidenceThreshold,
		}
	})
}

// WithGrading requests per-token confidence annotation.
func WithGrading() Option {
	return optionFunc(func(c *clientConfig) {
		enabled := true
		c.grading = &enabled
	})
}

// WithDecomposition requests query decomposition. This forces grading on
// server-side.
func WithDecomposition() Option {
	return optionFunc(func(c *clientConfig) {
		enabled := true
		c.decomposition = &enabled
	})
}

// WithLogger sets the logger (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = logger })
}
