// Package openrouter adapts the normalized completion contract to the
// OpenRouter chat completions API.
package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"character-chat-relay/internal/provider"
)

// DefaultBaseURL is used when no endpoint override is configured.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Provider implements the completion contract against OpenRouter.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates an OpenRouter provider. baseURL may be empty to use the
// public endpoint.
func New(baseURL string, client *http.Client) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (p *Provider) Name() string {
	return "openrouter"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt as a single user message and reads the reply
// from the first choice.
func (p *Provider) Complete(ctx context.Context, req provider.Request, cfg provider.Config) (*provider.Completion, error) {
	payload := chatRequest{
		Model:       cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	// OpenRouter asks callers to identify themselves for ranking purposes.
	headers := map[string]string{
		"HTTP-Referer": "https://localhost",
		"X-Title":      "character-chat-relay",
	}

	body, err := provider.PostJSON(ctx, p.client, p.baseURL+"/chat/completions", cfg.APIKey, headers, payload)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.ErrMalformedResponse
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, provider.ErrMalformedResponse
	}

	return &provider.Completion{Text: strings.TrimSpace(resp.Choices[0].Message.Content)}, nil
}
