package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-assistant/internal/assistant/orchestrate"
	"fulfillment-assistant/internal/common/config"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/reqctx"
	"fulfillment-assistant/internal/models"
)

type fakeOrchestrator struct {
	turn     *orchestrate.TurnResult
	turnErr  error
	init     *orchestrate.InitResult
	identity reqctx.Identity
	message  string
}

func (f *fakeOrchestrator) HandleTurn(ctx context.Context, userMessage string) (*orchestrate.TurnResult, error) {
	f.identity = reqctx.FromOrZero(ctx)
	f.message = userMessage
	return f.turn, f.turnErr
}

func (f *fakeOrchestrator) InitiateSession(ctx context.Context) (*orchestrate.InitResult, error) {
	f.identity = reqctx.FromOrZero(ctx)
	return f.init, nil
}

type fakeHistoryReader struct {
	history *models.History
}

func (f *fakeHistoryReader) FetchHistory(context.Context, string, string) (*models.History, error) {
	return f.history, nil
}

func newTestRouter(o *fakeOrchestrator, hist *fakeHistoryReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewChatHandler(o, hist, nil, logger.NewNoOpLogger())
	return NewRouter(handler, config.ServerConfig{}, logger.NewNoOpLogger())
}

func identified(req *http.Request) *http.Request {
	req.Header.Set("X-Tenant-Code", "acme")
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Session-Id", "s1")
	req.Header.Set("Cookie", "JSESSIONID=abc")
	return req
}

func TestChatEndpoint(t *testing.T) {
	o := &fakeOrchestrator{turn: &orchestrate.TurnResult{Text: "Found 2 orders."}}
	router := newTestRouter(o, &fakeHistoryReader{})

	req := identified(httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"show orders"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Found 2 orders.", resp.Text)
	assert.Empty(t, resp.Document)

	assert.Equal(t, "show orders", o.message)
	assert.Equal(t, "acme", o.identity.TenantCode)
	assert.Equal(t, "u1", o.identity.UserID)
	assert.Equal(t, "s1", o.identity.SessionID)
	assert.Equal(t, "JSESSIONID=abc", o.identity.AuthCookie)
}

func TestChatEndpointWithDocument(t *testing.T) {
	o := &fakeOrchestrator{turn: &orchestrate.TurnResult{
		Text:     "Invoices generated.",
		Document: []byte("%PDF-merged"),
	}}
	router := newTestRouter(o, &fakeHistoryReader{})

	req := identified(httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"process them"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	decoded, err := base64.StdEncoding.DecodeString(resp.Document)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-merged"), decoded)
}

func TestChatEndpointMissingIdentity(t *testing.T) {
	router := newTestRouter(&fakeOrchestrator{}, &fakeHistoryReader{})

	req := httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointMissingMessage(t *testing.T) {
	router := newTestRouter(&fakeOrchestrator{}, &fakeHistoryReader{})

	req := identified(httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateEndpoint(t *testing.T) {
	o := &fakeOrchestrator{init: &orchestrate.InitResult{Greeting: "Hello!"}}
	router := newTestRouter(o, &fakeHistoryReader{})

	req := identified(httptest.NewRequest(http.MethodPost, "/chat/initiate", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello!")
}

func TestHistoryEndpoint(t *testing.T) {
	hist := &fakeHistoryReader{history: &models.History{
		Messages: []models.ConversationTurn{{Role: models.RoleUser, Text: "hi"}},
	}}
	router := newTestRouter(&fakeOrchestrator{}, hist)

	req := identified(httptest.NewRequest(http.MethodGet, "/history", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Text)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(&fakeOrchestrator{}, &fakeHistoryReader{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
