// Package orchestrate ties a model turn to at most one tool invocation and
// feeds the tool's result back for a final natural-language reply.
package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fulfillment-assistant/internal/assistant/fulfill"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/metrics"
	"fulfillment-assistant/internal/common/reqctx"
	"fulfillment-assistant/internal/llm"
	"fulfillment-assistant/internal/models"
	"fulfillment-assistant/internal/uniware"
)

// Resolver turns filter entries into the session's order mapping.
type Resolver interface {
	Resolve(ctx context.Context, entity models.Entity, entries []models.FilterEntry) ([]models.OrderShipmentRecord, string, error)
}

// Executor runs the invoice/label pipeline over a batch.
type Executor interface {
	Fulfill(ctx context.Context, orders []models.OrderShipmentRecord) (*fulfill.Result, error)
}

// FacilityAPI is the slice of the order-management client the orchestrator
// calls directly for reference data and facility switches.
type FacilityAPI interface {
	GetChannels(ctx context.Context) (*uniware.ChannelsResponse, error)
	GetFacilities(ctx context.Context) (*uniware.FacilitiesResponse, error)
	SwitchFacility(ctx context.Context, facilityCode string) error
}

// SessionStore is the live conversation state collaborator.
type SessionStore interface {
	FetchHistory(ctx context.Context, userID, sessionID string) (*models.History, error)
	AppendMessage(ctx context.Context, userID, sessionID string, turn models.ConversationTurn) error
	AppendMetadata(ctx context.Context, userID, sessionID string, turn models.ConversationTurn) error
	ClearMetadata(ctx context.Context, userID, sessionID string) error
	FetchOrderMapping(ctx context.Context, userID, sessionID string) ([]models.OrderShipmentRecord, error)
	TrimMessages(ctx context.Context, userID, sessionID string, keep int) ([]models.ConversationTurn, error)
	DrainSession(ctx context.Context, userID, sessionID string) (*models.History, []models.OrderShipmentRecord, error)
}

// Archive is the durable store for retired session state.
type Archive interface {
	ArchiveSession(ctx context.Context, tenantCode, userID, sessionID string, history *models.History, orders []models.OrderShipmentRecord) error
	ArchiveMessages(ctx context.Context, tenantCode, userID, sessionID string, turns []models.ConversationTurn) error
	ArchiveOrders(ctx context.Context, tenantCode, userID, sessionID string, orders []models.OrderShipmentRecord) error
}

// Auditor records fulfillment runs. Optional.
type Auditor interface {
	RecordRun(ctx context.Context, tool string, orderCount int, summary string, documentBytes int)
}

// Notifier fans fulfillment summaries out. Optional.
type Notifier interface {
	FulfillmentCompleted(ctx context.Context, orderCount int, summary string, recipient string)
}

type Handler struct {
	caller   llm.Caller
	resolver Resolver
	executor Executor
	api      FacilityAPI
	store    SessionStore
	archive  Archive
	auditor  Auditor
	notifier Notifier
	config   Config
	logger   logger.Logger
}

func NewHandler(caller llm.Caller, resolver Resolver, executor Executor, api FacilityAPI, store SessionStore, archive Archive, cfg Config, log logger.Logger) *Handler {
	return &Handler{
		caller:   caller,
		resolver: resolver,
		executor: executor,
		api:      api,
		store:    store,
		archive:  archive,
		config:   cfg,
		logger:   log,
	}
}

// WithAuditor wires the optional run auditor.
func (h *Handler) WithAuditor(a Auditor) *Handler {
	h.auditor = a
	return h
}

// WithNotifier wires the optional notifier.
func (h *Handler) WithNotifier(n Notifier) *Handler {
	h.notifier = n
	return h
}

const greeting = "Hello! I can help you find and process orders in your warehouse. What would you like to do?"

// HandleTurn runs one conversational turn: persist the user message, ask
// the model, dispatch at most one tool, feed the result back and return the
// final text plus any assembled document. Every outcome is persisted before
// the next state transition.
func (h *Handler) HandleTurn(ctx context.Context, userMessage string) (*TurnResult, error) {
	id := reqctx.FromOrZero(ctx)

	history, err := h.store.FetchHistory(ctx, id.UserID, id.SessionID)
	if err != nil {
		return nil, err
	}

	userTurn := models.ConversationTurn{Role: models.RoleUser, Text: userMessage, Timestamp: time.Now().UTC()}
	if err := h.store.AppendMessage(ctx, id.UserID, id.SessionID, userTurn); err != nil {
		return nil, err
	}
	history.Messages = append(history.Messages, userTurn)

	reply, err := h.caller.Send(ctx, history.Combined(), systemInstruction)
	if err != nil {
		return nil, err
	}

	if reply.Kind == llm.ReplyText {
		if err := h.persistModelTurn(ctx, id, reply.Text); err != nil {
			return nil, err
		}
		h.trimAndArchive(ctx, id)
		return &TurnResult{Text: reply.Text}, nil
	}

	tool := reply.Tool
	if !llm.KnownTool(tool.Name) {
		metrics.ToolDispatches.WithLabelValues(tool.Name, "unknown").Inc()
		text := "unknown tool call"
		if err := h.persistModelTurn(ctx, id, text); err != nil {
			return nil, err
		}
		return &TurnResult{Text: text}, nil
	}

	feed, document := h.dispatch(ctx, tool)

	feedTurn := models.ConversationTurn{
		Role:      models.RoleUser,
		Text:      "[System Feed] " + feed,
		Timestamp: time.Now().UTC(),
	}
	if err := h.store.AppendMessage(ctx, id.UserID, id.SessionID, feedTurn); err != nil {
		return nil, err
	}

	// Re-fetch rather than extend the in-memory copy: a facility switch
	// rewrites the metadata turns, and the followup must see them fresh.
	history, err = h.store.FetchHistory(ctx, id.UserID, id.SessionID)
	if err != nil {
		return nil, err
	}

	followup, err := h.caller.Send(ctx, history.Combined(), systemInstruction)
	if err != nil {
		return nil, err
	}
	text := feed
	if followup.Kind == llm.ReplyText && followup.Text != "" {
		text = followup.Text
	}
	if err := h.persistModelTurn(ctx, id, text); err != nil {
		return nil, err
	}
	h.trimAndArchive(ctx, id)

	return &TurnResult{Text: text, Document: document}, nil
}

// dispatch invokes exactly one tool handler. Tool failures become the feed
// text; they never escape as errors because the model is expected to
// explain them to the operator.
func (h *Handler) dispatch(ctx context.Context, tool *llm.ToolCall) (feed string, document []byte) {
	if err := llm.ValidateArgs(tool.Name, tool.Args); err != nil {
		metrics.ToolDispatches.WithLabelValues(tool.Name, "invalid").Inc()
		return fmt.Sprintf("tool call failed: %v", err), nil
	}

	switch tool.Name {
	case llm.ToolFetchOrder:
		return h.dispatchFetch(ctx, tool.Args), nil
	case llm.ToolProcessOrder:
		return h.dispatchProcess(ctx, tool.Args)
	case llm.ToolSwitchFacility:
		return h.dispatchSwitch(ctx, tool.Args), nil
	}
	return "unknown tool call", nil
}

func (h *Handler) dispatchFetch(ctx context.Context, args json.RawMessage) string {
	var req models.FilterRequest
	if err := json.Unmarshal(args, &req); err != nil {
		metrics.ToolDispatches.WithLabelValues(llm.ToolFetchOrder, "invalid").Inc()
		return fmt.Sprintf("tool call failed: %v", err)
	}

	h.archiveCurrentMapping(ctx)

	_, summary, err := h.resolver.Resolve(ctx, req.Entity, req.Filters)
	if err != nil {
		metrics.ToolDispatches.WithLabelValues(llm.ToolFetchOrder, "failed").Inc()
		h.logger.Warn("order resolution failed", map[string]interface{}{"error": err.Error()})
		return fmt.Sprintf("order lookup failed: %v", err)
	}
	metrics.ToolDispatches.WithLabelValues(llm.ToolFetchOrder, "ok").Inc()
	return summary
}

// archiveCurrentMapping retires the mapping a fresh resolution is about to
// replace. Best effort.
func (h *Handler) archiveCurrentMapping(ctx context.Context) {
	id := reqctx.FromOrZero(ctx)
	orders, err := h.store.FetchOrderMapping(ctx, id.UserID, id.SessionID)
	if err != nil || len(orders) == 0 {
		return
	}
	if err := h.archive.ArchiveOrders(ctx, id.TenantCode, id.UserID, id.SessionID, orders); err != nil {
		h.logger.Warn("order mapping archive failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) dispatchProcess(ctx context.Context, args json.RawMessage) (string, []byte) {
	id := reqctx.FromOrZero(ctx)

	var payload struct {
		Orders []models.OrderShipmentRecord `json:"orders"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &payload); err != nil {
			metrics.ToolDispatches.WithLabelValues(llm.ToolProcessOrder, "invalid").Inc()
			return fmt.Sprintf("tool call failed: %v", err), nil
		}
	}

	orders := payload.Orders
	if len(orders) == 0 {
		stored, err := h.store.FetchOrderMapping(ctx, id.UserID, id.SessionID)
		if err != nil {
			metrics.ToolDispatches.WithLabelValues(llm.ToolProcessOrder, "failed").Inc()
			return fmt.Sprintf("could not load the stored order set: %v", err), nil
		}
		orders = stored
	}
	if len(orders) == 0 {
		metrics.ToolDispatches.WithLabelValues(llm.ToolProcessOrder, "empty").Inc()
		return "no orders to process; fetch orders first.", nil
	}

	result, err := h.executor.Fulfill(ctx, orders)
	if err != nil {
		metrics.ToolDispatches.WithLabelValues(llm.ToolProcessOrder, "failed").Inc()
		h.logger.Error("fulfillment run failed", map[string]interface{}{"error": err.Error()})
		return fmt.Sprintf("fulfillment failed: %v", err), nil
	}
	metrics.ToolDispatches.WithLabelValues(llm.ToolProcessOrder, "ok").Inc()

	if h.auditor != nil {
		h.auditor.RecordRun(ctx, llm.ToolProcessOrder, len(orders), result.Summary, len(result.Document))
	}
	if h.notifier != nil {
		h.notifier.FulfillmentCompleted(ctx, len(orders), result.Summary, h.config.NotifyRecipient)
	}
	return result.Summary, result.Document
}

func (h *Handler) dispatchSwitch(ctx context.Context, args json.RawMessage) string {
	var payload struct {
		FacilityCode string `json:"facilityCode"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		metrics.ToolDispatches.WithLabelValues(llm.ToolSwitchFacility, "invalid").Inc()
		return fmt.Sprintf("tool call failed: %v", err)
	}

	if err := h.api.SwitchFacility(ctx, payload.FacilityCode); err != nil {
		metrics.ToolDispatches.WithLabelValues(llm.ToolSwitchFacility, "failed").Inc()
		return fmt.Sprintf("facility switch to %s failed: %v", payload.FacilityCode, err)
	}
	metrics.ToolDispatches.WithLabelValues(llm.ToolSwitchFacility, "ok").Inc()

	// A switch invalidates every stored fact; rebuild them and re-resolve
	// pending orders unconditionally.
	h.archiveCurrentMapping(ctx)
	if err := h.refreshSessionFacts(ctx); err != nil {
		h.logger.Warn("session fact refresh failed", map[string]interface{}{"error": err.Error()})
		return fmt.Sprintf("switched to facility %s, but refreshing session facts failed: %v", payload.FacilityCode, err)
	}
	return fmt.Sprintf("switched to facility %s; pending orders re-resolved.", payload.FacilityCode)
}

// InitiateSession archives any prior session state, refreshes the system
// facts and stores the greeting. Called once per session start.
func (h *Handler) InitiateSession(ctx context.Context) (*InitResult, error) {
	id := reqctx.FromOrZero(ctx)

	history, orders, err := h.store.DrainSession(ctx, id.UserID, id.SessionID)
	if err != nil {
		return nil, err
	}
	if len(history.Combined()) > 0 || len(orders) > 0 {
		if err := h.archive.ArchiveSession(ctx, id.TenantCode, id.UserID, id.SessionID, history, orders); err != nil {
			h.logger.Warn("session archive failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if err := h.refreshSessionFacts(ctx); err != nil {
		return nil, err
	}

	greetTurn := models.ConversationTurn{Role: models.RoleModel, Text: greeting, Timestamp: time.Now().UTC()}
	if err := h.store.AppendMessage(ctx, id.UserID, id.SessionID, greetTurn); err != nil {
		return nil, err
	}
	return &InitResult{Greeting: greeting}, nil
}

// refreshSessionFacts clears the metadata turns and stores the five system
// facts the model relies on: channel list, current facility, facility list,
// current date and the pending-order summary.
func (h *Handler) refreshSessionFacts(ctx context.Context) error {
	id := reqctx.FromOrZero(ctx)

	if err := h.store.ClearMetadata(ctx, id.UserID, id.SessionID); err != nil {
		return err
	}

	channels, err := h.api.GetChannels(ctx)
	if err != nil {
		return err
	}
	facilities, err := h.api.GetFacilities(ctx)
	if err != nil {
		return err
	}

	facts := []string{
		uniware.FormatChannels(channels.Channels),
	}
	if current, ok := uniware.CurrentFacility(facilities.FacilityDTOList); ok {
		facts = append(facts, fmt.Sprintf("Current facility: %s", current.DisplayName))
	}
	facts = append(facts,
		uniware.FormatFacilities(facilities.FacilityDTOList),
		fmt.Sprintf("Current date: %s", time.Now().UTC().Format("02-01-2006")),
	)

	_, pendingSummary, err := h.resolver.Resolve(ctx, models.EntitySaleOrder, []models.FilterEntry{
		{Key: "orderStatusFilter", SelectedValues: []string{"CREATED"}},
	})
	if err != nil {
		h.logger.Warn("pending order resolution failed", map[string]interface{}{"error": err.Error()})
		pendingSummary = "pending orders could not be resolved."
	}
	facts = append(facts, "Pending orders: "+pendingSummary)

	for _, fact := range facts {
		turn := models.ConversationTurn{Role: models.RoleUser, Text: fact, Timestamp: time.Now().UTC()}
		if err := h.store.AppendMetadata(ctx, id.UserID, id.SessionID, turn); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) persistModelTurn(ctx context.Context, id reqctx.Identity, text string) error {
	return h.store.AppendMessage(ctx, id.UserID, id.SessionID, models.ConversationTurn{
		Role:      models.RoleModel,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// trimAndArchive keeps the live message list bounded; trimmed turns move to
// the archive. Best-effort.
func (h *Handler) trimAndArchive(ctx context.Context, id reqctx.Identity) {
	trimmed, err := h.store.TrimMessages(ctx, id.UserID, id.SessionID, h.config.keep())
	if err != nil {
		h.logger.Warn("history trim failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(trimmed) == 0 {
		return
	}
	if err := h.archive.ArchiveMessages(ctx, id.TenantCode, id.UserID, id.SessionID, trimmed); err != nil {
		h.logger.Warn("history archive failed", map[string]interface{}{"error": err.Error()})
	}
}
