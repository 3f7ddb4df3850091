package retrievex

import (
	"context"

	"github.com/kailas-cloud/retrievex/internal/domain"
)

// Re-exported sentinel errors for errors.Is checks on Retrieve failures.
var (
	// ErrUnknownSource signals an explicitly requested source that is not registered.
	ErrUnknownSource = domain.ErrUnknownSource
	// ErrAllSourcesFailed signals that every resolved source failed.
	ErrAllSourcesFailed = domain.ErrAllSourcesFailed
	// ErrNoSources signals that resolution produced an empty source set.
	ErrNoSources = domain.ErrNoSources
)

// Document is one retrieval result: text content plus a metadata mapping.
// The confidence score and source name are carried inside metadata under the
// "confidence" and "source" keys; per-token confidences, when a source
// honored grading, under "token_confidences".
type Document struct {
	PageContent string
	Metadata    map[string]any
}

// Warning is a non-fatal diagnostic attached to a response: a dropped
// source, a decomposition fallback, or a rerank fallback.
type Warning struct {
	Stage   string
	Source  string
	Message string
}

// Response is the result of one Retrieve call.
type Response struct {
	Documents []Document
	Warnings  []Warning
	// Grading reports the effective grading flag, including when forced on
	// by decomposition.
	Grading bool
}

// Filter is a backend-interpreted predicate tree attached to one source's
// requests. The aggregator never evaluates it client-side.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// Condition is a single key/operator/value predicate. Supported operators:
// eq, ne, in, gt, gte, lt, lte.
type Condition struct {
	Key   string
	Op    string
	Value any
}

// SourceConfig holds optional per-source overrides. Nil fields fall back to
// the client-wide defaults. Endpoint is only used with the static registry.
type SourceConfig struct {
	Endpoint      string
	MaxDocuments  *int
	MinConfidence *float64
	Filter        *Filter
}

// Decomposer is a custom query decomposition capability. Fallible: the
// client falls back to the original query on error or empty output.
type Decomposer interface {
	Decompose(ctx context.Context, query string) ([]string, error)
}

// RankedItem scores one document by its position in the input slice.
type RankedItem struct {
	Index int
	Score float64
}

// Reranker is a custom cross-source relevance capability. Fallible: the
// client keeps the merged order on error.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document) ([]RankedItem, error)
}
