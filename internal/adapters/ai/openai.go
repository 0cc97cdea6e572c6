package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/pkg/metrics"
)

const openAIBaseURL = "https://api.openai.com"

// OpenAIClient calls the chat completions endpoint of any OpenAI compatible service.
type OpenAIClient struct {
	apiKey string
	opts   clientOptions
}

// NewOpenAIClient returns a client for apiKey.
func NewOpenAIClient(apiKey string, opts ...Option) *OpenAIClient {
	return &OpenAIClient{apiKey: apiKey, opts: buildOptions(DefaultOpenAIModel, openAIBaseURL, opts)}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Generate implements insight.Generator. Search is ignored; chat completions
// have no built-in web grounding.
func (c *OpenAIClient) Generate(ctx context.Context, r insight.Request) (text string, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAIRequest(ProviderOpenAI, outcome(err), float64(time.Since(start).Milliseconds()))
	}()

	if c.apiKey == "" {
		return "", insight.ErrNotConfigured
	}

	payload, err := json.Marshal(openAIRequest{
		Model:    c.opts.model,
		Messages: []openAIMessage{{Role: "user", Content: r.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.opts.baseURL, "/")+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.opts.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(ProviderOpenAI, resp)
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}
	return out.Choices[0].Message.Content, nil
}
