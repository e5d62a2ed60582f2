// Package openai adapts the normalized completion contract to the legacy
// OpenAI text completions API.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"character-chat-relay/internal/provider"
)

// DefaultBaseURL is used when no endpoint override is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider implements the completion contract against OpenAI.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates an OpenAI provider. baseURL may be empty to use the public
// endpoint.
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
	return "openai"
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete sends a completion-style request and reads the generated text
// from the first choice.
func (p *Provider) Complete(ctx context.Context, req provider.Request, cfg provider.Config) (*provider.Completion, error) {
	payload := completionRequest{
		Model:       cfg.Model,
		Prompt:      req.Prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	body, err := provider.PostJSON(ctx, p.client, p.baseURL+"/completions", cfg.APIKey, nil, payload)
	if err != nil {
		return nil, err
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.ErrMalformedResponse
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Text == "" {
		return nil, provider.ErrMalformedResponse
	}

	return &provider.Completion{Text: strings.TrimSpace(resp.Choices[0].Text)}, nil
}
