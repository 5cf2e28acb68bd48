package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudmesh/orchestrator/pkg/domain"
	"go.uber.org/zap"
)

// Client implements ports.ServiceRegistry against the service registry's
// matching endpoints. The matching algorithm itself lives on the other
// side of this wire.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a new service-registry client
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Match requests local-cloud matching for the given form
func (c *Client) Match(ctx context.Context, form *domain.OrchestrationForm) (*domain.MatchResult, error) {
	return c.post(ctx, "/registry/v1/match", form)
}

// MatchInterCloud requests cross-cloud matching for the given form
func (c *Client) MatchInterCloud(ctx context.Context, form *domain.OrchestrationForm) (*domain.MatchResult, error) {
	return c.post(ctx, "/registry/v1/match/intercloud", form)
}

func (c *Client) post(ctx context.Context, path string, form *domain.OrchestrationForm) (*domain.MatchResult, error) {
	body, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(data))
	}

	var result domain.MatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode match result: %w", err)
	}

	c.logger.Debug("registry match completed",
		zap.String("path", path),
		zap.String("service", form.ServiceDefinition),
		zap.Int("matches", len(result.Matches)))

	return &result, nil
}
