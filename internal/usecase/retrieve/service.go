// Package retrieve implements the aggregation engine: query planning,
// concurrent per-source dispatch, filtering, merge, and the optional rerank
// and grading stages.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/hit"
	"github.com/kailas-cloud/retrievex/internal/domain/search/plan"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// DefaultTimeout bounds each source request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Response is the aggregate result of one retrieve call. Warnings carry
// per-source failures and capability fallbacks, so a degraded call stays
// distinguishable from a fully healthy one.
type Response struct {
	Documents []domain.Document
	Warnings  []domain.Warning
	// Grading reports the effective grading flag, including when forced on
	// by decomposition.
	Grading bool
}

// Service orchestrates one query across all resolved sources. Configuration
// is fixed at construction; a Service is safe for concurrent use.
type Service struct {
	registry Registry
	searcher SourceSearcher
	sources  source.Set
	logger   *zap.Logger

	selector source.Selector
	timeout  time.Duration
	grading  bool

	decomposer Decomposer

	reranker            Reranker
	rerankMaxDocuments  int
	rerankMinConfidence float64
}

// New creates a retrieve service querying all registered sources with a
// default per-request timeout.
func New(registry Registry, searcher SourceSearcher, sources source.Set, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry: registry,
		searcher: searcher,
		sources:  sources,
		logger:   logger,
		selector: source.All(),
		timeout:  DefaultTimeout,
	}
}

// WithSelector restricts retrieval to an explicit source subset.
func (s *Service) WithSelector(sel source.Selector) *Service {
	s.selector = sel
	return s
}

// WithTimeout sets the per-source-request deadline.
func (s *Service) WithTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.timeout = timeout
	}
	return s
}

// WithGrading requests per-token confidence annotation from sources.
func (s *Service) WithGrading(grading bool) *Service {
	s.grading = grading
	return s
}

// WithDecomposition enables query decomposition through the given capability.
// Enabling decomposition forces grading on for every dispatched subquery:
// a decomposed answer is only interpretable with token confidences attached.
func (s *Service) WithDecomposition(d Decomposer) *Service {
	s.decomposer = d
	return s
}

// WithRerank enables the post-merge rerank stage. maxDocuments caps the final
// sequence (0 = uncapped); minConfidence drops documents whose rerank score
// falls strictly below it.
func (s *Service) WithRerank(r Reranker, maxDocuments int, minConfidence float64) *Service {
	s.reranker = r
	s.rerankMaxDocuments = maxDocuments
	s.rerankMinConfidence = minConfidence
	return s
}

// Retrieve runs one query across all resolved sources and returns the merged,
// ordered document list. Individual source failures degrade the result and
// surface as warnings; the call errors only when no source can be resolved or
// every resolved source fails.
func (s *Service) Retrieve(ctx context.Context, query, user string) (Response, error) {
	if strings.TrimSpace(query) == "" {
		return Response{}, fmt.Errorf("query is required")
	}

	// Fails fast on an unknown explicit name: nothing is dispatched.
	endpoints, err := s.registry.Resolve(ctx, s.selector)
	if err != nil {
		return Response{}, fmt.Errorf("resolve sources: %w", err)
	}
	if len(endpoints) == 0 {
		return Response{}, domain.ErrNoSources
	}

	var warnings []domain.Warning

	p, warn := s.plan(ctx, query)
	if warn != nil {
		warnings = append(warnings, *warn)
	}

	// Effective configuration is derived once per call; dispatch tasks never
	// share a mutable flag.
	grading := s.grading || s.decomposer != nil

	slots := s.dispatch(ctx, p, endpoints, grading, user)

	pool := make([]hit.Hit, 0)
	failed := make([]domain.SourceFailure, 0)
	succeeded := make(map[string]bool, len(endpoints))
	for i := range slots {
		sl := &slots[i]
		if sl.err != nil {
			failed = append(failed, domain.SourceFailure{
				Source: sl.source, Subquery: sl.subquery, Err: sl.err,
			})
			warnings = append(warnings, domain.Warning{
				Stage:   domain.StageDispatch,
				Source:  sl.source,
				Message: sl.err.Error(),
			})
			s.logger.Warn("source request failed",
				zap.String("source", sl.source),
				zap.Error(sl.err),
			)
			continue
		}
		succeeded[sl.source] = true
		pool = append(pool, filterHits(
			sl.hits,
			s.sources.MinConfidence(sl.source),
			s.sources.MaxDocuments(sl.source),
		)...)
	}

	if len(succeeded) == 0 {
		return Response{}, domain.NewAllSourcesFailed(collapsePerSource(failed))
	}

	docs := toDocuments(mergeHits(pool))

	if s.reranker != nil {
		var rerankWarn *domain.Warning
		docs, rerankWarn = s.rerank(ctx, query, docs)
		if rerankWarn != nil {
			warnings = append(warnings, *rerankWarn)
		}
	}

	return Response{Documents: docs, Warnings: warnings, Grading: grading}, nil
}

// plan expands the query into subqueries. Decomposition failures and empty
// output both degrade to the single-element identity plan.
func (s *Service) plan(ctx context.Context, query string) (plan.Plan, *domain.Warning) {
	if s.decomposer == nil {
		return plan.Single(query), nil
	}

	subqueries, err := s.decomposer.Decompose(ctx, query)
	if err != nil {
		s.logger.Warn("query decomposition failed, using original query", zap.Error(err))
		return plan.Single(query), &domain.Warning{
			Stage:   domain.StageDecomposition,
			Message: fmt.Sprintf("%v: %v", domain.ErrDecomposition, err),
		}
	}

	p := plan.Decomposed(query, subqueries)
	if !p.IsDecomposed() {
		return p, &domain.Warning{
			Stage:   domain.StageDecomposition,
			Message: "decomposition returned no subqueries, using original query",
		}
	}
	return p, nil
}

// rerank reorders merged documents by the cross-source relevance signal and
// applies the global threshold and cap. On capability failure the pre-rerank
// order passes through unchanged.
func (s *Service) rerank(ctx context.Context, query string, docs []domain.Document) ([]domain.Document, *domain.Warning) {
	ranked, err := s.reranker.Rerank(ctx, query, docs)
	if err != nil {
		s.logger.Warn("rerank failed, keeping merged order", zap.Error(err))
		return docs, &domain.Warning{
			Stage:   domain.StageRerank,
			Message: fmt.Sprintf("%v: %v", domain.ErrRerank, err),
		}
	}

	// Documents the capability did not score keep score 0 and sort last.
	scores := make([]float64, len(docs))
	for _, item := range ranked {
		if item.Index >= 0 && item.Index < len(docs) {
			scores[item.Index] = item.Score
		}
	}

	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]domain.Document, 0, len(docs))
	for _, i := range order {
		if scores[i] < s.rerankMinConfidence {
			continue
		}
		out = append(out, withRerankScore(docs[i], scores[i]))
	}
	if s.rerankMaxDocuments > 0 && len(out) > s.rerankMaxDocuments {
		out = out[:s.rerankMaxDocuments]
	}
	return out, nil
}

// withRerankScore returns a copy of the document with the rerank score added
// to metadata. The input document is never mutated.
func withRerankScore(doc domain.Document, score float64) domain.Document {
	md := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		md[k] = v
	}
	md[metaRerankScore] = score
	return domain.Document{PageContent: doc.PageContent, Metadata: md}
}

const metaRerankScore = "rerank_score"

// collapsePerSource reduces slot failures to one reason per source,
// preserving first-seen order.
func collapsePerSource(failures []domain.SourceFailure) []domain.SourceFailure {
	seen := make(map[string]struct{}, len(failures))
	out := make([]domain.SourceFailure, 0, len(failures))
	for _, f := range failures {
		if _, ok := seen[f.Source]; ok {
			continue
		}
		seen[f.Source] = struct{}{}
		out = append(out, f)
	}
	return out
}
