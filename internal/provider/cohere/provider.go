// Package cohere adapts the normalized completion contract to the Cohere
// API. It speaks two dialects: stateless generate for plain prompts, and
// stateful chat when the caller supplies a conversation identifier.
package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"character-chat-relay/internal/provider"
)

// DefaultBaseURL is used when no endpoint override is configured.
const DefaultBaseURL = "https://api.cohere.ai/v1"

// Provider implements the completion contract against Cohere.
type Provider struct {
	baseURL string
	client  *http.Client
}

// New creates a Cohere provider. baseURL may be empty to use the public
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
	return "cohere"
}

type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Generations []struct {
		Text string `json:"text"`
	} `json:"generations"`
}

type chatRequest struct {
	Message        string  `json:"message"`
	Model          string  `json:"model"`
	ConversationID string  `json:"conversation_id,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
}

type chatResponse struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
}

// Complete routes to the chat endpoint when a conversation identifier is
// present, otherwise to generate. Chat replies carry the conversation
// identifier through for the next turn.
func (p *Provider) Complete(ctx context.Context, req provider.Request, cfg provider.Config) (*provider.Completion, error) {
	if req.ConversationID != "" {
		return p.chat(ctx, req, cfg)
	}
	return p.generate(ctx, req, cfg)
}

func (p *Provider) generate(ctx context.Context, req provider.Request, cfg provider.Config) (*provider.Completion, error) {
	payload := generateRequest{
		Model:       cfg.Model,
		Prompt:      req.Prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	body, err := provider.PostJSON(ctx, p.client, p.baseURL+"/generate", cfg.APIKey, nil, payload)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.ErrMalformedResponse
	}
	if len(resp.Generations) == 0 || resp.Generations[0].Text == "" {
		return nil, provider.ErrMalformedResponse
	}

	return &provider.Completion{Text: strings.TrimSpace(resp.Generations[0].Text)}, nil
}

func (p *Provider) chat(ctx context.Context, req provider.Request, cfg provider.Config) (*provider.Completion, error) {
	payload := chatRequest{
		Message:        req.Prompt,
		Model:          cfg.Model,
		ConversationID: req.ConversationID,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
	}

	body, err := provider.PostJSON(ctx, p.client, p.baseURL+"/chat", cfg.APIKey, nil, payload)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.ErrMalformedResponse
	}
	if resp.Text == "" {
		return nil, provider.ErrMalformedResponse
	}

	return &provider.Completion{
		Text:           strings.TrimSpace(resp.Text),
		ConversationID: resp.ConversationID,
	}, nil
}
