// Package hit holds the raw per-source search hit, the unit flowing from
// backend responses into filtering and merge.
package hit

// Hit is one candidate result from one source, before filtering.
type Hit struct {
	content          string
	source           string
	confidence       float64
	metadata         map[string]any
	tokenConfidences []float64
}

// New creates a hit. Confidence is clamped into [0,1].
func New(
	content, source string, confidence float64,
	metadata map[string]any, tokenConfidences []float64,
) Hit {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Hit{
		content:          content,
		source:           source,
		confidence:       confidence,
		metadata:         metadata,
		tokenConfidences: tokenConfidences,
	}
}

// Content returns the hit text.
func (h *Hit) Content() string { return h.content }

// Source returns the originating source name.
func (h *Hit) Source() string { return h.source }

// Confidence returns the relevance score in [0,1].
func (h *Hit) Confidence() float64 { return h.confidence }

// Metadata returns the backend-provided metadata mapping.
func (h *Hit) Metadata() map[string]any { return h.metadata }

// TokenConfidences returns per-token confidence scores, nil when the source
// did not honor the grading flag.
func (h *Hit) TokenConfidences() []float64 { return h.tokenConfidences }
