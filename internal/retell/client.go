package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/propestai/voice-agent-service/internal/domain"
	"github.com/propestai/voice-agent-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client handles communication with the Retell API. It is immutable after
// construction and injected into every service that talks to Retell, so
// tests can substitute a fake over the small per-service interfaces.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Retell API client. The limiter bounds how fast
// batch jobs (knowledge base sync) may hit the remote API.
func NewClient(baseURL, apiKey string, timeout time.Duration, ratePerSec float64) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if ratePerSec <= 0 {
		ratePerSec = 10
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)),
	}
}

// doRequest performs an authenticated request and decodes the JSON response
// into out (skipped when out is nil).
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.NewRemoteServiceError(fmt.Sprintf("retell request %s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewRemoteServiceError("failed to read retell response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(respBody)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		logger.Base().Warn("retell API error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", snippet),
		)
		return domain.NewRemoteServiceError(
			fmt.Sprintf("retell API returned %d for %s %s", resp.StatusCode, method, path), nil)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return domain.NewRemoteServiceError("failed to decode retell response", err)
		}
	}
	return nil
}

// CreatePhoneCall places an outbound phone call through Retell.
func (c *Client) CreatePhoneCall(ctx context.Context, req *CreatePhoneCallRequest) (*Call, error) {
	var call Call
	if err := c.doRequest(ctx, http.MethodPost, "/v2/create-phone-call", req, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// GetCall retrieves one call by Retell call id.
func (c *Client) GetCall(ctx context.Context, callID string) (*Call, error) {
	var call Call
	if err := c.doRequest(ctx, http.MethodGet, "/v2/get-call/"+callID, nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// CreateKnowledgeBase creates a remote knowledge base.
func (c *Client) CreateKnowledgeBase(ctx context.Context, req *CreateKnowledgeBaseRequest) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := c.doRequest(ctx, http.MethodPost, "/create-knowledge-base", req, &kb); err != nil {
		return nil, err
	}
	return &kb, nil
}

// RetrieveKnowledgeBase fetches the authoritative remote state of a
// knowledge base, including its sources.
func (c *Client) RetrieveKnowledgeBase(ctx context.Context, knowledgeBaseID string) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := c.doRequest(ctx, http.MethodGet, "/get-knowledge-base/"+knowledgeBaseID, nil, &kb); err != nil {
		return nil, err
	}
	return &kb, nil
}

// DeleteKnowledgeBase deletes a remote knowledge base.
func (c *Client) DeleteKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/delete-knowledge-base/"+knowledgeBaseID, nil, nil)
}

// UpdateLLM pushes a new state graph to a Retell response engine.
func (c *Client) UpdateLLM(ctx context.Context, llmID string, req *UpdateLLMRequest) (*LLM, error) {
	var llm LLM
	if err := c.doRequest(ctx, http.MethodPatch, "/update-retell-llm/"+llmID, req, &llm); err != nil {
		return nil, err
	}
	return &llm, nil
}

// DeleteAgent deletes a remote agent.
func (c *Client) DeleteAgent(ctx context.Context, agentID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/delete-agent/"+agentID, nil, nil)
}
