package domain

import "fmt"

// Stage identifies the pipeline stage a warning originated from.
type Stage string

const (
	// StageDispatch marks per-source dispatch failures.
	StageDispatch Stage = "dispatch"
	// StageDecomposition marks query decomposition fallbacks.
	StageDecomposition Stage = "decomposition"
	// StageRerank marks rerank fallbacks.
	StageRerank Stage = "rerank"
)

// SourceFailure records one failed source request. It is a diagnostic record,
// not an error: individual failures are absorbed, never propagated.
type SourceFailure struct {
	Source   string
	Subquery string
	Err      error
}

func (f SourceFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Source, f.Err)
}

// Warning is a non-fatal diagnostic attached to an aggregate response, so
// degraded results stay distinguishable from fully healthy ones.
type Warning struct {
	Stage   Stage  `json:"stage"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}
