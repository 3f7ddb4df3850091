package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/metrics"
	"github.com/kailas-cloud/retrievex/internal/usecase/retrieve"
)

// maxRerankContentChars bounds how much of each document goes into the
// rerank prompt.
const maxRerankContentChars = 1500

const rerankSystemPrompt = `You score documents by relevance to a search query.
Given a query and a numbered list of documents, assign each document a
relevance score between 0.0 and 1.0.
Respond with a JSON array of {"index": <number>, "score": <number>} objects
covering every document, and nothing else.`

// Reranker scores merged documents against the query via chat completion.
type Reranker struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewReranker creates an OpenAI-compatible rerank capability.
func NewReranker(cfg *Config) *Reranker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{client: newClient(cfg), model: cfg.Model, logger: logger}
}

// Rerank implements retrieve.Reranker.
func (r *Reranker) Rerank(
	ctx context.Context, query string, docs []domain.Document,
) ([]retrieve.RankedItem, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rerankSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: rerankPrompt(query, docs)},
		},
	})
	if err != nil {
		metrics.ReranksTotal.WithLabelValues(r.model, "error").Inc()
		return nil, parseAPIError("rerank", err)
	}
	if len(resp.Choices) == 0 {
		metrics.ReranksTotal.WithLabelValues(r.model, "error").Inc()
		return nil, fmt.Errorf("rerank: empty completion response")
	}

	items, err := parseRankedItems(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ReranksTotal.WithLabelValues(r.model, "error").Inc()
		return nil, err
	}

	metrics.ReranksTotal.WithLabelValues(r.model, "success").Inc()
	r.logger.Debug("documents reranked",
		zap.String("model", r.model),
		zap.Int("documents", len(docs)),
		zap.Int("scored", len(items)),
	)
	return items, nil
}

func rerankPrompt(query string, docs []domain.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nDocuments:\n", query)
	for i, doc := range docs {
		content := doc.PageContent
		if len(content) > maxRerankContentChars {
			content = content[:maxRerankContentChars]
		}
		fmt.Fprintf(&b, "[%d] %s\n", i, content)
	}
	return b.String()
}

func parseRankedItems(content string) ([]retrieve.RankedItem, error) {
	var parsed []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &parsed); err != nil {
		return nil, fmt.Errorf("rerank: malformed completion: %w", err)
	}

	items := make([]retrieve.RankedItem, 0, len(parsed))
	for _, p := range parsed {
		items = append(items, retrieve.RankedItem{Index: p.Index, Score: p.Score})
	}
	return items, nil
}
