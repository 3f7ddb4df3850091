// Package openai implements the optional retrieval capabilities, query
// decomposition and cross-source reranking, on an OpenAI-compatible chat
// completion API. Both are fallible by contract: the engine degrades to its
// non-enhanced path when they fail.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/metrics"
)

const defaultMaxSubqueries = 4

const decomposeSystemPrompt = `You split a search query into at most %d standalone subqueries.
Each subquery must be self-contained and answerable on its own.
If the query is already atomic, return it as the only subquery.
Respond with a JSON array of strings and nothing else.`

// Config holds the capability provider settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxSubqueries int
	Logger        *zap.Logger
}

// Decomposer splits queries into subqueries via chat completion.
type Decomposer struct {
	client        *openai.Client
	model         string
	maxSubqueries int
	logger        *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// NewDecomposer creates an OpenAI-compatible decomposition capability.
func NewDecomposer(cfg *Config) *Decomposer {
	maxSub := cfg.MaxSubqueries
	if maxSub <= 0 {
		maxSub = defaultMaxSubqueries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decomposer{
		client:        newClient(cfg),
		model:         cfg.Model,
		maxSubqueries: maxSub,
		logger:        logger,
	}
}

// Decompose implements retrieve.Decomposer.
func (d *Decomposer) Decompose(ctx context.Context, query string) ([]string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(decomposeSystemPrompt, d.maxSubqueries),
			},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		metrics.DecompositionsTotal.WithLabelValues(d.model, "error").Inc()
		return nil, parseAPIError("decomposition", err)
	}
	if len(resp.Choices) == 0 {
		metrics.DecompositionsTotal.WithLabelValues(d.model, "error").Inc()
		return nil, fmt.Errorf("decomposition: empty completion response")
	}

	subqueries, err := parseSubqueries(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.DecompositionsTotal.WithLabelValues(d.model, "error").Inc()
		return nil, err
	}
	if len(subqueries) > d.maxSubqueries {
		subqueries = subqueries[:d.maxSubqueries]
	}

	metrics.DecompositionsTotal.WithLabelValues(d.model, "success").Inc()
	d.logger.Debug("query decomposed",
		zap.String("model", d.model),
		zap.Int("subqueries", len(subqueries)),
	)
	return subqueries, nil
}

// parseSubqueries extracts the JSON string array from the completion, which
// models sometimes wrap in markdown fences.
func parseSubqueries(content string) ([]string, error) {
	content = stripFences(content)

	var subqueries []string
	if err := json.Unmarshal([]byte(content), &subqueries); err != nil {
		return nil, fmt.Errorf("decomposition: malformed completion: %w", err)
	}
	return subqueries, nil
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if after, ok := strings.CutPrefix(content, "```json"); ok {
		content = after
	} else if after, ok := strings.CutPrefix(content, "```"); ok {
		content = after
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
