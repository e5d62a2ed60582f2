package repository

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"character-chat-relay/internal/models"
)

// ExchangeRepository is the durable, queryable log of chat exchanges.
// Exchanges are immutable once written; the interface has no update or
// delete operations on purpose.
type ExchangeRepository interface {
	// Append persists a single exchange, assigning its server-side timestamp.
	Append(ctx context.Context, exchange *models.ChatExchange) error
	// ListAll returns every exchange, newest first.
	ListAll(ctx context.Context) ([]models.ChatExchange, error)
	// ListByCharacter returns the exchanges for one character, newest first.
	ListByCharacter(ctx context.Context, characterID string) ([]models.ChatExchange, error)
	// ListByName returns exchanges logged under a display name, newest first.
	ListByName(ctx context.Context, name string) ([]models.ChatExchange, error)
	// ListByTimeRange returns exchanges whose timestamp falls within the
	// inclusive [start, end] RFC 3339 range, newest first.
	ListByTimeRange(ctx context.Context, start, end string) ([]models.ChatExchange, error)
	// RecentByCharacter returns at most limit exchanges for a character,
	// oldest first, for prompt context windowing.
	RecentByCharacter(ctx context.Context, characterID string, limit int) ([]models.ChatExchange, error)
}

// timestampLayout is RFC 3339 with a fixed-width nanosecond fraction.
// Every stored stamp has the same length, so lexicographic comparison
// matches chronological comparison in both the BETWEEN range query and
// the monotonic clamp. RFC3339Nano trims trailing zeros and would break
// that: 'Z' sorts above '.', so shorter stamps compare out of order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// GormExchangeRepository implements ExchangeRepository on a GORM connection.
type GormExchangeRepository struct {
	db *gorm.DB

	// mu guards lastStamp so timestamps never decrease across concurrent
	// appends, even if the wall clock does.
	mu        sync.Mutex
	lastStamp string
}

// NewGormExchangeRepository creates a repository backed by the given connection.
func NewGormExchangeRepository(db *gorm.DB) *GormExchangeRepository {
	return &GormExchangeRepository{db: db}
}

func (r *GormExchangeRepository) Append(ctx context.Context, exchange *models.ChatExchange) error {
	exchange.Timestamp = r.nextTimestamp()
	return r.db.WithContext(ctx).Create(exchange).Error
}

// nextTimestamp returns the current UTC time in RFC 3339, clamped so that
// successive calls are non-decreasing.
func (r *GormExchangeRepository) nextTimestamp() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamp := time.Now().UTC().Format(timestampLayout)
	if stamp < r.lastStamp {
		stamp = r.lastStamp
	}
	r.lastStamp = stamp
	return stamp
}

func (r *GormExchangeRepository) ListAll(ctx context.Context) ([]models.ChatExchange, error) {
	exchanges := make([]models.ChatExchange, 0)
	err := r.db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Find(&exchanges).Error
	return exchanges, err
}

func (r *GormExchangeRepository) ListByCharacter(ctx context.Context, characterID string) ([]models.ChatExchange, error) {
	exchanges := make([]models.ChatExchange, 0)
	err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Order("timestamp DESC, id DESC").
		Find(&exchanges).Error
	return exchanges, err
}

func (r *GormExchangeRepository) ListByName(ctx context.Context, name string) ([]models.ChatExchange, error) {
	exchanges := make([]models.ChatExchange, 0)
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Order("timestamp DESC, id DESC").
		Find(&exchanges).Error
	return exchanges, err
}

func (r *GormExchangeRepository) ListByTimeRange(ctx context.Context, start, end string) ([]models.ChatExchange, error) {
	exchanges := make([]models.ChatExchange, 0)
	err := r.db.WithContext(ctx).
		Where("timestamp BETWEEN ? AND ?", normalizeBound(start), normalizeBound(end)).
		Order("timestamp DESC, id DESC").
		Find(&exchanges).Error
	return exchanges, err
}

// normalizeBound reformats an RFC 3339 bound to the fixed-width stored
// layout. Callers typically send whole-second bounds; compared raw against
// fractional stamps those would mis-include or mis-exclude every row in the
// boundary second.
func normalizeBound(value string) string {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return t.UTC().Format(timestampLayout)
}

func (r *GormExchangeRepository) RecentByCharacter(ctx context.Context, characterID string, limit int) ([]models.ChatExchange, error) {
	if limit <= 0 {
		return []models.ChatExchange{}, nil
	}

	var exchanges []models.ChatExchange
	err := r.db.WithContext(ctx).
		Where("character_id = ?", characterID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&exchanges).Error
	if err != nil {
		return nil, err
	}

	// The query fetches newest-first; the prompt wants oldest-first.
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}
