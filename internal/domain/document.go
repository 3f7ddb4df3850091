package domain

// Metadata keys carried on returned documents. Score and provenance live in
// metadata so the output shape stays backend-agnostic.
const (
	MetaSource           = "source"
	MetaConfidence       = "confidence"
	MetaTokenConfidences = "token_confidences"
)

// Document is one retrieval result: text content plus a metadata mapping.
// Documents are never mutated after emission; consumers own them.
type Document struct {
	PageContent string
	Metadata    map[string]any
}

// Source returns the source name from metadata, if present.
func (d Document) Source() string {
	s, _ := d.Metadata[MetaSource].(string)
	return s
}

// Confidence returns the confidence score from metadata, if present.
func (d Document) Confidence() float64 {
	c, _ := d.Metadata[MetaConfidence].(float64)
	return c
}
