package aiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmatsumoto/feedback360/internal/resilience"
)

// SkillsClient calls the external AI skills assessment service. All calls
// share one circuit breaker; each retry attempt passes through the breaker,
// so every attempt counts toward its failure threshold.
type SkillsClient struct {
	client   *Client
	breaker  *resilience.Breaker
	retryCfg resilience.RetryConfig
}

// NewSkillsClient creates a skills assessment client with its own breaker.
func NewSkillsClient(client *Client, breakerCfg resilience.BreakerConfig, retryCfg resilience.RetryConfig) *SkillsClient {
	return &SkillsClient{
		client:   client,
		breaker:  resilience.NewBreaker("ai_skills_service", breakerCfg),
		retryCfg: retryCfg,
	}
}

// Breaker exposes the circuit breaker, mainly so tests can reset it.
func (c *SkillsClient) Breaker() *resilience.Breaker {
	return c.breaker
}

// AssessSkills posts the 360° evaluation data and returns the validated
// assessment response.
func (c *SkillsClient) AssessSkills(ctx context.Context, req *AssessmentRequest) (*AssessmentResponse, error) {
	var resp AssessmentResponse
	err := resilience.Retry(ctx, c.retryCfg, func(ctx context.Context) error {
		return c.breaker.Call(ctx, func(ctx context.Context) error {
			body, err := c.client.PostJSON(ctx, "/assess", req)
			if err != nil {
				return err
			}
			if err := validateResponse(assessmentResponseSchema, body); err != nil {
				return err
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to decode assessment response: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
