package retrieve

import (
	"context"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/hit"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// Registry resolves source names into reachable endpoints for the configured
// application. Resolution is fresh per call: backends may change.
type Registry interface {
	Resolve(ctx context.Context, sel source.Selector) ([]source.Endpoint, error)
}

// SourceSearcher executes one source request and returns the raw hits.
type SourceSearcher interface {
	Search(ctx context.Context, req request.Request) ([]hit.Hit, error)
}

// Decomposer splits one query into standalone subqueries. Fallible: callers
// fall back to the original query on error or empty output.
type Decomposer interface {
	Decompose(ctx context.Context, query string) ([]string, error)
}

// RankedItem scores one merged document by its position in the input slice.
type RankedItem struct {
	Index int
	Score float64
}

// Reranker scores merged documents against the original query using a
// cross-source relevance signal. Fallible: callers pass the pre-rerank order
// through unchanged on error.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []domain.Document) ([]RankedItem, error)
}
