// Package api exposes the chat relay's HTTP endpoints.
package api

import (
	goerrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"character-chat-relay/internal/models"
	"character-chat-relay/internal/provider"
	"character-chat-relay/internal/service"
	"character-chat-relay/pkg/errors"
	"character-chat-relay/pkg/resilience"
)

// ChatController handles chat completion and log retrieval endpoints.
type ChatController struct {
	chatService *service.ChatService
}

// NewChatController creates a new chat controller
func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{chatService: chatService}
}

// RegisterRoutes registers the chat routes on the given group. The static
// logs routes are registered before the parameterized ones so that "date"
// and "name" are never captured as a character id.
func (c *ChatController) RegisterRoutes(group *gin.RouterGroup) {
	chatGroup := group.Group("/chat")
	{
		chatGroup.POST("/completions", c.CreateCompletion)
		chatGroup.GET("/logs", c.ListLogs)
		chatGroup.GET("/logs/date", c.ListLogsByDate)
		chatGroup.GET("/logs/name/:name", c.ListLogsByName)
		chatGroup.GET("/logs/:characterId", c.ListLogsByCharacter)
	}
}

// CreateCompletion generates a character reply from the snapshot, the pending
// interactions, and the persisted history.
func (c *ChatController) CreateCompletion(ctx *gin.Context) {
	var req models.CompletionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(errors.NewBadRequestError("VALIDATION_ERROR",
			"characterId, interactions and details are required").WithDetails(err.Error()))
		return
	}

	resp, err := c.chatService.Complete(ctx.Request.Context(), &req)
	if err != nil {
		ctx.Error(mapProviderError(err))
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// ListLogs returns every persisted exchange, newest first.
func (c *ChatController) ListLogs(ctx *gin.Context) {
	exchanges, err := c.chatService.Logs(ctx.Request.Context())
	if err != nil {
		ctx.Error(errors.NewInternalServerError("STORAGE_ERROR", "Failed to read chat logs").WithDetails(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, exchanges)
}

// ListLogsByDate returns the exchanges in the inclusive [startDate, endDate]
// range. Both query parameters are required.
func (c *ChatController) ListLogsByDate(ctx *gin.Context) {
	start := ctx.Query("startDate")
	end := ctx.Query("endDate")
	if start == "" || end == "" {
		ctx.Error(errors.NewBadRequestError("VALIDATION_ERROR", "startDate and endDate are required"))
		return
	}

	exchanges, err := c.chatService.LogsByTimeRange(ctx.Request.Context(), start, end)
	if err != nil {
		ctx.Error(errors.NewInternalServerError("STORAGE_ERROR", "Failed to read chat logs").WithDetails(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, exchanges)
}

// ListLogsByCharacter returns the exchanges for one character id.
func (c *ChatController) ListLogsByCharacter(ctx *gin.Context) {
	exchanges, err := c.chatService.LogsByCharacter(ctx.Request.Context(), ctx.Param("characterId"))
	if err != nil {
		ctx.Error(errors.NewInternalServerError("STORAGE_ERROR", "Failed to read chat logs").WithDetails(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, exchanges)
}

// ListLogsByName returns the exchanges logged under a display name.
func (c *ChatController) ListLogsByName(ctx *gin.Context) {
	exchanges, err := c.chatService.LogsByName(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		ctx.Error(errors.NewInternalServerError("STORAGE_ERROR", "Failed to read chat logs").WithDetails(err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, exchanges)
}

// mapProviderError converts the provider error taxonomy into API errors.
// Upstream rejections keep their status code but the raw upstream body stays
// out of the response.
func mapProviderError(err error) *errors.AppError {
	var upErr *provider.UpstreamError
	if goerrors.As(err, &upErr) {
		return errors.NewError(upErr.StatusCode, "UPSTREAM_ERROR", "Error processing request.").
			WithDetails(upErr.Body)
	}

	var netErr *provider.NetworkError
	if goerrors.As(err, &netErr) {
		return errors.NewBadGatewayError("UPSTREAM_UNAVAILABLE", "Error processing request.").
			WithDetails(netErr.Error())
	}

	if goerrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.NewError(http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Error processing request.")
	}

	if goerrors.Is(err, provider.ErrMalformedResponse) {
		return errors.NewBadGatewayError("UPSTREAM_MALFORMED", "Error processing request.").
			WithDetails(err.Error())
	}

	return errors.NewInternalServerError("SERVER_ERROR", "Error processing request.").
		WithDetails(err.Error())
}
