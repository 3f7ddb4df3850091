package retrieve

import (
	"context"
	"sync"

	"github.com/kailas-cloud/retrievex/internal/domain/search/hit"
	"github.com/kailas-cloud/retrievex/internal/domain/search/plan"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// slot holds the result-or-failure of one (subquery, source) request. Each
// concurrent task writes exactly one slot; slots are read only after the join
// barrier, so no locking is needed.
type slot struct {
	source   string
	subquery string
	hits     []hit.Hit
	err      error
}

// dispatch issues one request per (subquery, source) pair concurrently, each
// bounded by its own deadline. A timed-out or failed request records a
// failure in its slot and never cancels siblings. Slot order is fixed by
// (subquery index, endpoint index), which makes downstream merge order
// independent of completion timing.
func (s *Service) dispatch(
	ctx context.Context, p plan.Plan, endpoints []source.Endpoint, grading bool, user string,
) []slot {
	subqueries := p.Subqueries()
	slots := make([]slot, len(subqueries)*len(endpoints))

	var wg sync.WaitGroup
	for qi, subquery := range subqueries {
		for ei, ep := range endpoints {
			i := qi*len(endpoints) + ei
			slots[i].source = ep.Name
			slots[i].subquery = subquery

			req, err := request.New(
				subquery, ep.Name, ep.URL,
				s.sources.Filters(ep.Name),
				s.sources.MinConfidence(ep.Name),
				s.sources.MaxDocuments(ep.Name),
				grading, user, s.timeout,
			)
			if err != nil {
				slots[i].err = err
				continue
			}

			wg.Add(1)
			go func(i int, req request.Request) {
				defer wg.Done()

				reqCtx, cancel := context.WithTimeout(ctx, req.Timeout())
				defer cancel()

				hits, err := s.searcher.Search(reqCtx, req)
				if err != nil {
					slots[i].err = err
					return
				}
				slots[i].hits = hits
			}(i, req)
		}
	}
	wg.Wait()

	return slots
}
