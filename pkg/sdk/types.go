package sdk

// Document is one retrieval result returned by the service.
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Warning is a non-fatal diagnostic attached to a response.
type Warning struct {
	Stage   string `json:"stage"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// Filter is a backend-interpreted predicate tree for one service.
type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	Should  []Condition `json:"should,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// Condition is a single key/operator/value predicate. Supported operators:
// eq, ne, in, gt, gte, lt, lte.
type Condition struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Wire DTOs.

type serviceEntry struct {
	Service             string   `json:"service"`
	MaxDocuments        *int     `json:"max_documents,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	Filter              *Filter  `json:"filter,omitempty"`
}

type rerankParams struct {
	MaxDocuments        *int     `json:"max_documents,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
}

type searchRequest struct {
	Query         string         `json:"query"`
	User          string         `json:"user,omitempty"`
	Services      []serviceEntry `json:"services,omitempty"`
	Rerank        *rerankParams  `json:"rerank,omitempty"`
	Grading       *bool          `json:"grading,omitempty"`
	Decomposition *bool          `json:"decomposition,omitempty"`
}

type searchResponse struct {
	Documents []Document `json:"documents"`
	Warnings  []Warning  `json:"warnings"`
	Grading   bool       `json:"grading"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
