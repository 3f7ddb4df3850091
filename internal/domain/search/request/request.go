// Package request holds the per-source dispatch request value.
package request

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
)

// Request is one (subquery, source) dispatch unit. Constructed fresh per
// dispatch and never mutated afterwards, so concurrent tasks share nothing.
type Request struct {
	subquery      string
	source        string
	endpoint      string
	filters       filter.Expression
	minConfidence float64
	maxDocuments  int
	grading       bool
	user          string
	timeout       time.Duration
}

// New validates and creates a source request.
func New(
	subquery, source, endpoint string,
	filters filter.Expression,
	minConfidence float64,
	maxDocuments int,
	grading bool,
	user string,
	timeout time.Duration,
) (Request, error) {
	if subquery == "" {
		return Request{}, fmt.Errorf("subquery is required")
	}
	if source == "" {
		return Request{}, fmt.Errorf("source name is required")
	}
	if endpoint == "" {
		return Request{}, fmt.Errorf("endpoint is required for source %q", source)
	}
	if minConfidence < 0 || minConfidence > 1 {
		return Request{}, fmt.Errorf("confidence threshold must be between 0 and 1 for source %q", source)
	}
	if timeout <= 0 {
		return Request{}, fmt.Errorf("timeout must be positive for source %q", source)
	}
	return Request{
		subquery:      subquery,
		source:        source,
		endpoint:      endpoint,
		filters:       filters,
		minConfidence: minConfidence,
		maxDocuments:  maxDocuments,
		grading:       grading,
		user:          user,
		timeout:       timeout,
	}, nil
}

// Subquery returns the subquery text.
func (r *Request) Subquery() string { return r.subquery }

// Source returns the target source name.
func (r *Request) Source() string { return r.source }

// Endpoint returns the resolved endpoint URL.
func (r *Request) Endpoint() string { return r.endpoint }

// Filters returns the backend-interpreted filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// MinConfidence returns the effective confidence threshold.
func (r *Request) MinConfidence() float64 { return r.minConfidence }

// MaxDocuments returns the effective document cap.
func (r *Request) MaxDocuments() int { return r.maxDocuments }

// Grading reports whether per-token confidence annotation is requested.
func (r *Request) Grading() bool { return r.grading }

// User returns the caller identity forwarded to the source.
func (r *Request) User() string { return r.user }

// Timeout returns the per-request deadline budget.
func (r *Request) Timeout() time.Duration { return r.timeout }
