package retrieve

import (
	"sort"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/hit"
)

// filterHits applies one source's effective confidence threshold and document
// cap to its raw hits. Hits strictly below the threshold are dropped, the
// remainder is ordered by descending confidence and truncated. A cap of zero
// or less yields an empty result, not an error.
func filterHits(hits []hit.Hit, minConfidence float64, maxDocuments int) []hit.Hit {
	if maxDocuments <= 0 {
		return nil
	}

	kept := make([]hit.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Confidence() >= minConfidence {
			kept = append(kept, h)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence() > kept[j].Confidence()
	})

	if len(kept) > maxDocuments {
		kept = kept[:maxDocuments]
	}
	return kept
}

type dedupeKey struct {
	source  string
	content string
}

// mergeHits combines the slot-ordered candidate pool into the final merge
// order: descending confidence, tie-break by source name, then original slot
// order (preserved by the stable sort). Exact duplicates (same source with
// identical content) keep their highest-confidence copy. The result is
// deterministic for a fixed set of source responses regardless of completion
// timing.
func mergeHits(pool []hit.Hit) []hit.Hit {
	merged := append([]hit.Hit(nil), pool...)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Confidence() != merged[j].Confidence() {
			return merged[i].Confidence() > merged[j].Confidence()
		}
		return merged[i].Source() < merged[j].Source()
	})

	seen := make(map[dedupeKey]struct{}, len(merged))
	out := merged[:0]
	for _, h := range merged {
		k := dedupeKey{source: h.Source(), content: h.Content()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, h)
	}
	return out
}

// toDocuments converts merged hits into result documents. Confidence and
// provenance travel in metadata; per-token confidences are attached only when
// the source honored the grading flag.
func toDocuments(hits []hit.Hit) []domain.Document {
	docs := make([]domain.Document, 0, len(hits))
	for i := range hits {
		h := &hits[i]

		md := make(map[string]any, len(h.Metadata())+3)
		for k, v := range h.Metadata() {
			md[k] = v
		}
		md[domain.MetaSource] = h.Source()
		md[domain.MetaConfidence] = h.Confidence()
		if tc := h.TokenConfidences(); len(tc) > 0 {
			md[domain.MetaTokenConfidences] = append([]float64(nil), tc...)
		}

		docs = append(docs, domain.Document{PageContent: h.Content(), Metadata: md})
	}
	return docs
}
