package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"character-chat-relay/internal/models"
	"character-chat-relay/internal/prompt"
	"character-chat-relay/internal/provider"
	"character-chat-relay/internal/repository"
	"character-chat-relay/internal/service"
	"character-chat-relay/pkg/errors"
)

type stubProvider struct {
	calls int
	reply *provider.Completion
	err   error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(context.Context, provider.Request, provider.Config) (*provider.Completion, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func newTestRepo(t *testing.T) repository.ExchangeRepository {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chat_log.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.ChatExchange{}))
	return repository.NewGormExchangeRepository(db)
}

func newTestEngine(t *testing.T, repo repository.ExchangeRepository, prov provider.Provider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewChatService(repo, prov, provider.Config{}, prompt.NewBuilder(10), nil, nil)

	engine := gin.New()
	engine.Use(errors.ErrorHandler())
	NewChatController(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func completionBody() string {
	return `{
		"characterId": "colonist-1",
		"interactions": ["How are you?"],
		"details": {"name": "Aria", "mood": "content"}
	}`
}

func postJSON(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func getJSON(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCreateCompletionSuccess(t *testing.T) {
	repo := newTestRepo(t)
	prov := &stubProvider{reply: &provider.Completion{Text: "Could be worse."}}
	engine := newTestEngine(t, repo, prov)

	w := postJSON(engine, "/api/v1/chat/completions", completionBody())
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.CompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Could be worse.", resp.Response)

	logs, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "colonist-1", logs[0].CharacterID)
}

func TestCreateCompletionValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing characterId", `{"interactions":["hi"],"details":{"name":"Aria"}}`},
		{"missing interactions", `{"characterId":"c1","details":{"name":"Aria"}}`},
		{"empty interactions", `{"characterId":"c1","interactions":[],"details":{"name":"Aria"}}`},
		{"missing details", `{"characterId":"c1","interactions":["hi"]}`},
		{"not json", `not json at all`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prov := &stubProvider{reply: &provider.Completion{Text: "x"}}
			engine := newTestEngine(t, newTestRepo(t), prov)

			w := postJSON(engine, "/api/v1/chat/completions", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, 0, prov.calls, "invalid requests must not reach the provider")

			var resp map[string]map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "VALIDATION_ERROR", resp["error"]["code"])
		})
	}
}

func TestCreateCompletionUpstreamErrorForwardsStatus(t *testing.T) {
	repo := newTestRepo(t)
	prov := &stubProvider{err: &provider.UpstreamError{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"secret":"internal upstream detail"}`,
	}}
	engine := newTestEngine(t, repo, prov)

	w := postJSON(engine, "/api/v1/chat/completions", completionBody())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "internal upstream detail",
		"upstream body must not leak to the caller")

	var resp map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UPSTREAM_ERROR", resp["error"]["code"])
	assert.Equal(t, "Error processing request.", resp["error"]["message"])

	logs, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, logs, "failed completions must not be logged")
}

func TestCreateCompletionNetworkErrorIsBadGateway(t *testing.T) {
	prov := &stubProvider{err: &provider.NetworkError{Err: http.ErrHandlerTimeout}}
	engine := newTestEngine(t, newTestRepo(t), prov)

	w := postJSON(engine, "/api/v1/chat/completions", completionBody())
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCreateCompletionMalformedUpstreamIsBadGateway(t *testing.T) {
	prov := &stubProvider{err: provider.ErrMalformedResponse}
	engine := newTestEngine(t, newTestRepo(t), prov)

	w := postJSON(engine, "/api/v1/chat/completions", completionBody())
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListLogsEndpoints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q1", Content: "a1"}))
	require.NoError(t, repo.Append(ctx, &models.ChatExchange{CharacterID: "c2", Name: "Dan", Interaction: "q2", Content: "a2"}))

	engine := newTestEngine(t, repo, &stubProvider{})

	w := getJSON(engine, "/api/v1/chat/logs")
	require.Equal(t, http.StatusOK, w.Code)
	var all []models.ChatExchange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	w = getJSON(engine, "/api/v1/chat/logs/c1")
	require.Equal(t, http.StatusOK, w.Code)
	var byChar []models.ChatExchange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byChar))
	require.Len(t, byChar, 1)
	assert.Equal(t, "c1", byChar[0].CharacterID)

	w = getJSON(engine, "/api/v1/chat/logs/name/Dan")
	require.Equal(t, http.StatusOK, w.Code)
	var byName []models.ChatExchange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &byName))
	require.Len(t, byName, 1)
	assert.Equal(t, "Dan", byName[0].Name)

	w = getJSON(engine, "/api/v1/chat/logs/unknown-character")
	require.Equal(t, http.StatusOK, w.Code)
	var empty []models.ChatExchange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &empty))
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListLogsByDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q1", Content: "a1"}
	require.NoError(t, repo.Append(ctx, first))
	second := &models.ChatExchange{CharacterID: "c1", Name: "Aria", Interaction: "q2", Content: "a2"}
	require.NoError(t, repo.Append(ctx, second))

	engine := newTestEngine(t, repo, &stubProvider{})

	w := getJSON(engine, "/api/v1/chat/logs/date?startDate="+first.Timestamp+"&endDate="+second.Timestamp)
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.ChatExchange
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	// Both bounds are required.
	w = getJSON(engine, "/api/v1/chat/logs/date?startDate="+first.Timestamp)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = getJSON(engine, "/api/v1/chat/logs/date")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
