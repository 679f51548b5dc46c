package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fulfillment-assistant/internal/assistant/orchestrate"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/observability"
	"fulfillment-assistant/internal/common/reqctx"
	"fulfillment-assistant/internal/models"
)

// Orchestrator is the conversational core behind the chat endpoints.
type Orchestrator interface {
	HandleTurn(ctx context.Context, userMessage string) (*orchestrate.TurnResult, error)
	InitiateSession(ctx context.Context) (*orchestrate.InitResult, error)
}

// HistoryReader serves the history endpoint.
type HistoryReader interface {
	FetchHistory(ctx context.Context, userID, sessionID string) (*models.History, error)
}

type ChatHandler struct {
	orchestrator Orchestrator
	history      HistoryReader
	obs          *observability.Observability
	logger       logger.Logger
}

func NewChatHandler(o Orchestrator, history HistoryReader, obs *observability.Observability, log logger.Logger) *ChatHandler {
	return &ChatHandler{orchestrator: o, history: history, obs: obs, logger: log}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Text string `json:"text"`
	// Document carries a base64-encoded PDF when the turn assembled one.
	Document string `json:"document,omitempty"`
}

// Chat handles one conversational turn.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	start := time.Now()
	result, err := h.orchestrator.HandleTurn(c.Request.Context(), req.Message)
	if err != nil {
		h.recordTurn(c, start, "error")
		h.logger.Error("turn failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the assistant could not process this message"})
		return
	}
	h.recordTurn(c, start, "ok")

	resp := chatResponse{Text: result.Text}
	if len(result.Document) > 0 {
		resp.Document = base64.StdEncoding.EncodeToString(result.Document)
	}
	c.JSON(http.StatusOK, resp)
}

// Initiate starts a fresh session, archiving any prior state.
func (h *ChatHandler) Initiate(c *gin.Context) {
	result, err := h.orchestrator.InitiateSession(c.Request.Context())
	if err != nil {
		h.logger.Error("session initiation failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session could not be initiated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"greeting": result.Greeting})
}

// History returns the session's metadata and message turns.
func (h *ChatHandler) History(c *gin.Context) {
	id := reqctx.FromOrZero(c.Request.Context())
	history, err := h.history.FetchHistory(c.Request.Context(), id.UserID, id.SessionID)
	if err != nil {
		h.logger.Error("history fetch failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history could not be loaded"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// Health is the liveness probe.
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *ChatHandler) recordTurn(c *gin.Context, start time.Time, outcome string) {
	if h.obs == nil {
		return
	}
	h.obs.RecordTurnProcessed(c.Request.Context(), outcome)
	h.obs.RecordTurnDuration(c.Request.Context(), time.Since(start), outcome)
}
