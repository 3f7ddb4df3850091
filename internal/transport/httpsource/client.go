// Package httpsource implements the HTTP wire contract for backend search
// sources: a bearer-authenticated JSON POST per source request, returning a
// list of hit records.
package httpsource

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
	"github.com/kailas-cloud/retrievex/internal/domain/search/hit"
	"github.com/kailas-cloud/retrievex/internal/domain/search/request"
	"github.com/kailas-cloud/retrievex/internal/metrics"
)

// maxResponseBytes bounds a single source response body.
const maxResponseBytes = 16 << 20

// Config holds source client settings.
type Config struct {
	// Token is the pre-obtained bearer credential forwarded to every source.
	Token string
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	Logger             *zap.Logger
}

// Client executes source requests over HTTP. One Client is shared by all
// concurrent dispatch tasks; per-request deadlines come from the context.
type Client struct {
	http   *http.Client
	token  string
	logger *zap.Logger
}

// New creates a source client.
func New(cfg Config) *Client {
	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
		transport = t
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Transport: transport},
		token:  cfg.Token,
		logger: logger,
	}
}

// searchRequest is the JSON body of one source request.
type searchRequest struct {
	Query               string             `json:"query"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
	MaxDocuments        int                `json:"max_documents"`
	Filter              *filter.Expression `json:"filter,omitempty"`
	Grading             bool               `json:"grading"`
	User                string             `json:"user,omitempty"`
}

// hitRecord is one candidate result on the wire.
type hitRecord struct {
	Content          string         `json:"content"`
	Confidence       float64        `json:"confidence"`
	Metadata         map[string]any `json:"metadata"`
	TokenConfidences []float64      `json:"token_confidences,omitempty"`
}

// Search implements retrieve.SourceSearcher. Transport errors, non-success
// statuses (including rejected credentials), and malformed payloads all
// surface as source-local failures wrapping domain.ErrSourceUnavailable.
func (c *Client) Search(ctx context.Context, req request.Request) ([]hit.Hit, error) {
	body := searchRequest{
		Query:               req.Subquery(),
		ConfidenceThreshold: req.MinConfidence(),
		MaxDocuments:        req.MaxDocuments(),
		Grading:             req.Grading(),
		User:                req.User(),
	}
	if f := req.Filters(); !f.IsEmpty() {
		body.Filter = &f
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request for %s: %v", domain.ErrSourceUnavailable, req.Source(), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", domain.ErrSourceUnavailable, req.Source(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(req.Source(), "error").Inc()
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, req.Source(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(req.Source(), "error").Inc()
		return nil, fmt.Errorf("%w: %s: read response: %v", domain.ErrSourceUnavailable, req.Source(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.SourceRequestsTotal.WithLabelValues(req.Source(), "error").Inc()
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			domain.ErrSourceUnavailable, req.Source(), resp.StatusCode, truncate(raw, 256))
	}

	var records []hitRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(req.Source(), "error").Inc()
		return nil, fmt.Errorf("%w: %s: malformed response: %v", domain.ErrSourceUnavailable, req.Source(), err)
	}

	metrics.SourceRequestsTotal.WithLabelValues(req.Source(), "success").Inc()
	metrics.SourceRequestDuration.WithLabelValues(req.Source()).Observe(duration.Seconds())
	metrics.SourceHitsTotal.WithLabelValues(req.Source()).Add(float64(len(records)))

	c.logger.Debug("source responded",
		zap.String("source", req.Source()),
		zap.Int("hits", len(records)),
		zap.Duration("latency", duration),
	)

	hits := make([]hit.Hit, 0, len(records))
	for _, rec := range records {
		hits = append(hits, hit.New(
			rec.Content, req.Source(), rec.Confidence, rec.Metadata, rec.TokenConfidences,
		))
	}
	return hits, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
