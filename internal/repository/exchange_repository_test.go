package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"character-chat-relay/internal/models"
)

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.ChatExchange{}))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

func newTestRepo(t *testing.T) *GormExchangeRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat_log.db")
	return NewGormExchangeRepository(openTestDB(t, path))
}

func TestAppendAndListRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exchange := &models.ChatExchange{
		CharacterID: "colonist-1",
		Name:        "Aria",
		Interaction: "How are you?",
		Content:     "Could be worse.",
	}
	require.NoError(t, repo.Append(ctx, exchange))
	assert.NotZero(t, exchange.ID)
	assert.NotEmpty(t, exchange.Timestamp)

	_, err := time.Parse(time.RFC3339Nano, exchange.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC 3339")

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "colonist-1", all[0].CharacterID)
	assert.Equal(t, "Aria", all[0].Name)
	assert.Equal(t, "How are you?", all[0].Interaction)
	assert.Equal(t, "Could be worse.", all[0].Content)
}

func TestListAllEmptyIsNotNil(t *testing.T) {
	repo := newTestRepo(t)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestListByCharacterAndName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q1", Content: "a1"}))
	require.NoError(t, repo.Append(ctx, &models.ChatExchange{CharacterID: "c2", Name: "Dan", Interaction: "q2", Content: "a2"}))
	require.NoError(t, repo.Append(ctx, &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q3", Content: "a3"}))

	byChar, err := repo.ListByCharacter(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, byChar, 2)
	assert.Equal(t, "q3", byChar[0].Interaction, "newest first")
	assert.Equal(t, "q1", byChar[1].Interaction)

	byName, err := repo.ListByName(ctx, "Dan")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "q2", byName[0].Interaction)

	none, err := repo.ListByCharacter(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListByTimeRangeInclusive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exchanges := make([]*models.ChatExchange, 3)
	for i := range exchanges {
		exchanges[i] = &models.ChatExchange{
			CharacterID: "c1",
			Name:        "Aria",
			Interaction: fmt.Sprintf("q%d", i),
			Content:     fmt.Sprintf("a%d", i),
		}
		require.NoError(t, repo.Append(ctx, exchanges[i]))
	}

	// Endpoints equal to stored timestamps must be included.
	got, err := repo.ListByTimeRange(ctx, exchanges[0].Timestamp, exchanges[2].Timestamp)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = repo.ListByTimeRange(ctx, exchanges[1].Timestamp, exchanges[1].Timestamp)
	require.NoError(t, err)
	for _, e := range got {
		assert.Equal(t, exchanges[1].Timestamp, e.Timestamp)
	}

	got, err = repo.ListByTimeRange(ctx, "2099-01-01T00:00:00Z", "2099-12-31T00:00:00Z")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppendTimestampFixedWidth(t *testing.T) {
	repo := newTestRepo(t)

	exchange := &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q", Content: "a"}
	require.NoError(t, repo.Append(context.Background(), exchange))

	assert.Len(t, exchange.Timestamp, len("2006-01-02T15:04:05.000000000Z"),
		"stamps must have a fixed-width fraction so string order matches time order")

	parsed, err := time.Parse(time.RFC3339Nano, exchange.Timestamp)
	require.NoError(t, err)
	assert.Equal(t, exchange.Timestamp, parsed.UTC().Format(timestampLayout))
}

func TestListByTimeRangeWholeSecondBounds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	exchange := &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q", Content: "a"}
	require.NoError(t, repo.Append(ctx, exchange))

	stamp, err := time.Parse(time.RFC3339Nano, exchange.Timestamp)
	require.NoError(t, err)
	second := stamp.Truncate(time.Second)

	// A whole-second start bound in the stamp's own second includes the row.
	got, err := repo.ListByTimeRange(ctx,
		second.Format(time.RFC3339), second.Add(time.Second).Format(time.RFC3339))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// A whole-second end bound before the fractional part excludes the row.
	if stamp.After(second) {
		got, err = repo.ListByTimeRange(ctx,
			second.Add(-time.Hour).Format(time.RFC3339), second.Format(time.RFC3339))
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestRecentByCharacter(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, &models.ChatExchange{
			CharacterID: "c1",
			Name:        "Aria",
			Interaction: fmt.Sprintf("q%d", i),
			Content:     fmt.Sprintf("a%d", i),
		}))
	}

	recent, err := repo.RecentByCharacter(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "q2", recent[0].Interaction, "oldest of the window first")
	assert.Equal(t, "q3", recent[1].Interaction)
	assert.Equal(t, "q4", recent[2].Interaction)

	none, err := repo.RecentByCharacter(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendTimestampsNeverDecrease(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_ = repo.Append(ctx, &models.ChatExchange{
				CharacterID: "c1",
				Name:        "Aria",
				Interaction: fmt.Sprintf("q%d", i),
				Content:     "a",
			})
		}(i)
	}
	wg.Wait()

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, n)

	// ListAll returns newest first: walking down the slice, timestamps must
	// be non-increasing.
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i].Timestamp, all[i-1].Timestamp)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat_log.db")

	first := openTestDB(t, path)
	repo := NewGormExchangeRepository(first)
	require.NoError(t, repo.Append(context.Background(), &models.ChatExchange{
		CharacterID: "c1", Name: "Aria", Interaction: "q", Content: "a",
	}))

	// Re-opening runs AutoMigrate again over the existing schema and must
	// preserve data.
	second := openTestDB(t, path)
	all, err := NewGormExchangeRepository(second).ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
