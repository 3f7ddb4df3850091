package chi

import (
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/config"
	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// searchRequest is the aggregation endpoint body. Per-service entries and the
// rerank block override the configured defaults for this call only.
type searchRequest struct {
	Query         string           `json:"query"`
	User          string           `json:"user,omitempty"`
	Services      []serviceEntry   `json:"services,omitempty"`
	Rerank        *rerankParams    `json:"rerank,omitempty"`
	Grading       *bool            `json:"grading,omitempty"`
	Decomposition *bool            `json:"decomposition,omitempty"`
}

// serviceEntry selects one source, optionally overriding its configuration.
// The special name "all" selects every registered source.
type serviceEntry struct {
	Service             string     `json:"service"`
	MaxDocuments        *int       `json:"max_documents,omitempty"`
	ConfidenceThreshold *float64   `json:"confidence_threshold,omitempty"`
	Filter              *filterDTO `json:"filter,omitempty"`
}

type rerankParams struct {
	MaxDocuments        *int     `json:"max_documents,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
}

type filterDTO struct {
	Must    []conditionDTO `json:"must,omitempty"`
	Should  []conditionDTO `json:"should,omitempty"`
	MustNot []conditionDTO `json:"must_not,omitempty"`
}

type conditionDTO struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

type documentDTO struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

type searchResponse struct {
	Documents []documentDTO    `json:"documents"`
	Warnings  []domain.Warning `json:"warnings,omitempty"`
	Grading   bool             `json:"grading"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *filterDTO) toConfig() *config.FilterConfig {
	if f == nil {
		return nil
	}
	return &config.FilterConfig{
		Must:    toConditionConfigs(f.Must),
		Should:  toConditionConfigs(f.Should),
		MustNot: toConditionConfigs(f.MustNot),
	}
}

func toConditionConfigs(dtos []conditionDTO) []config.ConditionConfig {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]config.ConditionConfig, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, config.ConditionConfig{Key: d.Key, Op: d.Op, Value: d.Value})
	}
	return out
}

// mergeSources overlays request-level service entries onto the configured
// defaults, producing the per-call source set and selector.
func mergeSources(base config.SourcesConfig, entries []serviceEntry) (source.Set, source.Selector, error) {
	merged := config.SourcesConfig{
		DefaultMaxDocuments:  base.DefaultMaxDocuments,
		DefaultMinConfidence: base.DefaultMinConfidence,
		Overrides:            make(map[string]config.SourceConfig, len(base.Overrides)+len(entries)),
	}
	for name, sc := range base.Overrides {
		merged.Overrides[name] = sc
	}

	all := len(entries) == 0
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Service == "" || e.Service == "all" {
			all = true
			continue
		}
		names = append(names, e.Service)

		sc := merged.Overrides[e.Service]
		if e.MaxDocuments != nil {
			sc.MaxDocuments = e.MaxDocuments
		}
		if e.ConfidenceThreshold != nil {
			if *e.ConfidenceThreshold < 0 || *e.ConfidenceThreshold > 1 {
				return source.Set{}, source.Selector{}, fmt.Errorf(
					"confidence_threshold for service %q must be between 0 and 1", e.Service)
			}
			sc.MinConfidence = e.ConfidenceThreshold
		}
		if f := e.Filter.toConfig(); f != nil {
			sc.Filter = f
		}
		merged.Overrides[e.Service] = sc
	}

	set, err := merged.SourceSet()
	if err != nil {
		return source.Set{}, source.Selector{}, err
	}

	if all {
		return set, source.All(), nil
	}
	return set, source.Names(names...), nil
}

func toDocumentDTOs(docs []domain.Document) []documentDTO {
	out := make([]documentDTO, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentDTO{PageContent: d.PageContent, Metadata: d.Metadata})
	}
	return out
}
