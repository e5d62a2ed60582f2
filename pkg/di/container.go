// Package di assembles the application's dependency graph.
package di

import (
	"fmt"

	"gorm.io/gorm"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"character-chat-relay/internal/db"
	"character-chat-relay/internal/prompt"
	"character-chat-relay/internal/provider"
	"character-chat-relay/internal/provider/factory"
	"character-chat-relay/internal/repository"
	"character-chat-relay/internal/service"
	"character-chat-relay/pkg/config"
	"character-chat-relay/pkg/health"
	"character-chat-relay/pkg/logger"
	"character-chat-relay/pkg/observability"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             *gorm.DB
	Repository     repository.ExchangeRepository
	Provider       provider.Provider
	ProviderConfig provider.Config
	ChatService    *service.ChatService
	HealthChecker  *health.Checker
	Metrics        *observability.Metrics
	MeterProvider  *sdkmetric.MeterProvider
}

// New builds the full dependency graph from configuration.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.GetGlobal()
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat log store: %w", err)
	}

	repo := repository.NewGormExchangeRepository(conn)

	prov, provCfg, err := factory.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure completion provider: %w", err)
	}

	mp, err := observability.SetupMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metric instruments: %w", err)
	}

	builder := prompt.NewBuilder(cfg.LLM.HistoryWindow)
	chatService := service.NewChatService(repo, prov, provCfg, builder, metrics, log)

	checker := health.NewChecker(log)
	checker.RegisterDatabaseCheck(func() error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Ping()
	})

	return &Container{
		Config:         cfg,
		Logger:         log,
		DB:             conn,
		Repository:     repo,
		Provider:       prov,
		ProviderConfig: provCfg,
		ChatService:    chatService,
		HealthChecker:  checker,
		Metrics:        metrics,
		MeterProvider:  mp,
	}, nil
}

// Close releases the container's long-lived resources.
func (c *Container) Close() error {
	if c.DB != nil {
		if err := db.Close(c.DB); err != nil {
			return err
		}
	}
	return nil
}
