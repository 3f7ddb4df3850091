package config

import (
	"fmt"

	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// SourceSet converts the YAML source section into the immutable domain set.
func (s SourcesConfig) SourceSet() (source.Set, error) {
	configs := make(map[string]source.Config, len(s.Overrides))
	for name, sc := range s.Overrides {
		var expr filter.Expression
		if sc.Filter != nil {
			var err error
			expr, err = sc.Filter.Expression()
			if err != nil {
				return source.Set{}, fmt.Errorf("sources.overrides.%s.filter: %w", name, err)
			}
		}
		configs[name] = source.NewConfig(sc.MaxDocuments, sc.MinConfidence, expr)
	}
	return source.NewSet(configs, s.DefaultMaxDocuments, s.DefaultMinConfidence), nil
}

// Endpoints returns the static endpoint map for the static registry driver.
func (s SourcesConfig) Endpoints() map[string]string {
	endpoints := make(map[string]string, len(s.Overrides))
	for name, sc := range s.Overrides {
		endpoints[name] = sc.Endpoint
	}
	return endpoints
}

// Expression converts the YAML filter form into a domain filter expression.
func (f FilterConfig) Expression() (filter.Expression, error) {
	must, err := conditions(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditions(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditions(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, should, mustNot)
}

func conditions(configs []ConditionConfig) ([]filter.Condition, error) {
	if len(configs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(configs))
	for _, cc := range configs {
		c, err := filter.NewCondition(cc.Key, filter.Op(cc.Op), cc.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
