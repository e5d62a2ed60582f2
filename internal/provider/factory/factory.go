// Package factory constructs the configured completion provider.
package factory

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"character-chat-relay/internal/provider"
	"character-chat-relay/internal/provider/cohere"
	"character-chat-relay/internal/provider/openai"
	"character-chat-relay/internal/provider/openrouter"
	"character-chat-relay/pkg/config"
	"character-chat-relay/pkg/logger"
	"character-chat-relay/pkg/resilience"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// New builds the provider selected by configuration along with its resolved
// completion config. The returned config is passed explicitly on every
// Complete call; nothing here is process-global.
func New(cfg *config.Config) (provider.Provider, provider.Config, error) {
	client := newHTTPClient(cfg.LLM.Timeout)

	providerCfg := provider.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}

	var prov provider.Provider
	switch cfg.LLM.Provider {
	case "openrouter":
		prov = openrouter.New(cfg.LLM.Endpoint, client)
	case "openai":
		prov = openai.New(cfg.LLM.Endpoint, client)
	case "cohere":
		prov = cohere.New(cfg.LLM.Endpoint, client)
	default:
		return nil, provider.Config{}, fmt.Errorf("unknown completion provider %q", cfg.LLM.Provider)
	}

	// Repeated upstream outages open the breaker so the relay fails fast
	// instead of queueing requests against a dead provider.
	breaker := resilience.New(resilience.DefaultConfig(prov.Name()), logger.GetGlobal())
	return provider.NewResilient(prov, breaker), providerCfg, nil
}

// newHTTPClient builds a client with a bounded overall timeout so a stalled
// upstream can never hang a request forever.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
