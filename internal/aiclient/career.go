package aiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmatsumoto/feedback360/internal/resilience"
)

// CareerClient calls the external AI career path service. It keeps a
// breaker distinct from the skills service so one failing dependency never
// blocks the other.
type CareerClient struct {
	client   *Client
	breaker  *resilience.Breaker
	retryCfg resilience.RetryConfig
}

// NewCareerClient creates a career path client with its own breaker.
func NewCareerClient(client *Client, breakerCfg resilience.BreakerConfig, retryCfg resilience.RetryConfig) *CareerClient {
	return &CareerClient{
		client:   client,
		breaker:  resilience.NewBreaker("ai_career_service", breakerCfg),
		retryCfg: retryCfg,
	}
}

// Breaker exposes the circuit breaker, mainly so tests can reset it.
func (c *CareerClient) Breaker() *resilience.Breaker {
	return c.breaker
}

// GenerateCareerPaths posts the skills and profile context and returns the
// validated career path response.
func (c *CareerClient) GenerateCareerPaths(ctx context.Context, req *CareerPathRequest) (*CareerPathResponse, error) {
	var resp CareerPathResponse
	err := resilience.Retry(ctx, c.retryCfg, func(ctx context.Context) error {
		return c.breaker.Call(ctx, func(ctx context.Context) error {
			body, err := c.client.PostJSON(ctx, "/generate", req)
			if err != nil {
				return err
			}
			if err := validateResponse(careerPathResponseSchema, body); err != nil {
				return err
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode career path response: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
