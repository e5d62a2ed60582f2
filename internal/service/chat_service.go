// Package service orchestrates chat completions: history lookup, prompt
// construction, the upstream provider call, and the append-only log write.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"character-chat-relay/internal/models"
	"character-chat-relay/internal/prompt"
	"character-chat-relay/internal/provider"
	"character-chat-relay/internal/repository"
	"character-chat-relay/pkg/logger"
	"character-chat-relay/pkg/observability"
	"character-chat-relay/pkg/resilience"
)

// ChatService handles completion requests end to end.
type ChatService struct {
	repo    repository.ExchangeRepository
	prov    provider.Provider
	provCfg provider.Config
	builder *prompt.Builder
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewChatService creates a ChatService. metrics may be nil.
func NewChatService(
	repo repository.ExchangeRepository,
	prov provider.Provider,
	provCfg provider.Config,
	builder *prompt.Builder,
	metrics *observability.Metrics,
	log *logger.Logger,
) *ChatService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &ChatService{
		repo:    repo,
		prov:    prov,
		provCfg: provCfg,
		builder: builder,
		metrics: metrics,
		logger:  log,
	}
}

// Complete generates a character reply for the request. The caller is
// responsible for structural validation; Complete assumes the request binds.
//
// A history read failure degrades to an empty context rather than failing the
// request, and a log write failure after a successful completion is reported
// through logs only: the caller still gets the reply.
func (s *ChatService) Complete(ctx context.Context, req *models.CompletionRequest) (*models.CompletionResponse, error) {
	log := s.logger.WithCharacterID(req.CharacterID)
	start := time.Now()

	history, err := s.repo.RecentByCharacter(ctx, req.CharacterID, s.builder.HistoryWindow)
	if err != nil {
		log.Warn("failed to load chat history, continuing without context", "error", err.Error())
		history = nil
	}

	promptText := s.builder.Build(req.Details, history, req.Interactions)

	completion, err := s.prov.Complete(ctx, provider.Request{
		Prompt:         promptText,
		ConversationID: req.ConversationID,
	}, s.provCfg)
	if err != nil {
		s.metrics.RecordCompletion(ctx, s.prov.Name(), time.Since(start), false)
		s.metrics.RecordProviderError(ctx, s.prov.Name(), classifyProviderError(err))
		return nil, err
	}

	exchange := &models.ChatExchange{
		CharacterID: req.CharacterID,
		Name:        req.Details.Name,
		Interaction: strings.Join(req.Interactions, " "),
		Content:     completion.Text,
	}
	if err := s.repo.Append(ctx, exchange); err != nil {
		log.LogError(err, "failed to persist chat exchange")
	}

	s.metrics.RecordCompletion(ctx, s.prov.Name(), time.Since(start), true)

	return &models.CompletionResponse{
		Response:       completion.Text,
		ConversationID: completion.ConversationID,
	}, nil
}

// Logs returns every exchange, newest first.
func (s *ChatService) Logs(ctx context.Context) ([]models.ChatExchange, error) {
	return s.repo.ListAll(ctx)
}

// LogsByCharacter returns the exchanges for one character id, newest first.
func (s *ChatService) LogsByCharacter(ctx context.Context, characterID string) ([]models.ChatExchange, error) {
	return s.repo.ListByCharacter(ctx, characterID)
}

// LogsByName returns exchanges logged under a display name, newest first.
func (s *ChatService) LogsByName(ctx context.Context, name string) ([]models.ChatExchange, error) {
	return s.repo.ListByName(ctx, name)
}

// LogsByTimeRange returns exchanges in the inclusive [start, end] range,
// newest first.
func (s *ChatService) LogsByTimeRange(ctx context.Context, start, end string) ([]models.ChatExchange, error) {
	return s.repo.ListByTimeRange(ctx, start, end)
}

func classifyProviderError(err error) string {
	var netErr *provider.NetworkError
	var upErr *provider.UpstreamError
	switch {
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &upErr):
		return "upstream_rejected"
	case errors.Is(err, provider.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	default:
		return "unknown"
	}
}
