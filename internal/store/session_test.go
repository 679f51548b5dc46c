package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-assistant/internal/common/database"
	"fulfillment-assistant/internal/models"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSessionStore(&database.RedisClient{Client: client})
}

func TestFetchHistoryEmpty(t *testing.T) {
	s := newTestStore(t)

	history, err := s.FetchHistory(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, history.Metadata)
	assert.Empty(t, history.Messages)
	assert.Empty(t, history.Combined())
}

func TestAppendAndFetchOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMetadata(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "fact one"}))
	require.NoError(t, s.AppendMessage(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "hello"}))
	require.NoError(t, s.AppendMessage(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleModel, Text: "hi there"}))

	history, err := s.FetchHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, history.Metadata, 1)
	require.Len(t, history.Messages, 2)

	combined := history.Combined()
	require.Len(t, combined, 3)
	assert.Equal(t, "fact one", combined[0].Text)
	assert.Equal(t, "hello", combined[1].Text)
	assert.Equal(t, "hi there", combined[2].Text)
	assert.False(t, combined[0].Timestamp.IsZero())
}

func TestSessionIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "for s1"}))
	require.NoError(t, s.AppendMessage(ctx, "u1", "s2", models.ConversationTurn{Role: models.RoleUser, Text: "for s2"}))

	h1, err := s.FetchHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	h2, err := s.FetchHistory(ctx, "u1", "s2")
	require.NoError(t, err)

	require.Len(t, h1.Messages, 1)
	require.Len(t, h2.Messages, 1)
	assert.Equal(t, "for s1", h1.Messages[0].Text)
	assert.Equal(t, "for s2", h2.Messages[0].Text)
}

func TestClearMetadataKeepsMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMetadata(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "stale facility facts"}))
	require.NoError(t, s.AppendMessage(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "switch please"}))

	require.NoError(t, s.ClearMetadata(ctx, "u1", "s1"))

	history, err := s.FetchHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, history.Metadata)
	require.Len(t, history.Messages, 1)
}

func TestReplaceOrderMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []models.OrderShipmentRecord{
		{SaleOrderNum: "SO-1", Shipment: "SHP-1", Channel: "FLIPKART"},
		{SaleOrderNum: "SO-2", Shipment: "SHP-2", Channel: "AMAZON"},
	}
	require.NoError(t, s.ReplaceOrderMapping(ctx, "u1", "s1", first))

	got, err := s.FetchOrderMapping(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := []models.OrderShipmentRecord{
		{SaleOrderNum: "SO-9", Shipment: "SHP-9", ChannelName: "Myntra", ChannelID: 7},
	}
	require.NoError(t, s.ReplaceOrderMapping(ctx, "u1", "s1", second))

	got, err = s.FetchOrderMapping(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestReplaceOrderMappingEmptyClears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceOrderMapping(ctx, "u1", "s1", []models.OrderShipmentRecord{
		{SaleOrderNum: "SO-1", Shipment: "SHP-1"},
	}))
	require.NoError(t, s.ReplaceOrderMapping(ctx, "u1", "s1", nil))

	got, err := s.FetchOrderMapping(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTrimMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 13; i++ {
		turn := models.ConversationTurn{
			Role:      models.RoleUser,
			Text:      string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.AppendMessage(ctx, "u1", "s1", turn))
	}

	trimmed, err := s.TrimMessages(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	require.Len(t, trimmed, 3)
	assert.Equal(t, "a", trimmed[0].Text)
	assert.Equal(t, "c", trimmed[2].Text)

	history, err := s.FetchHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 10)
	assert.Equal(t, "d", history.Messages[0].Text)
	assert.Equal(t, "m", history.Messages[9].Text)
}

func TestTrimMessagesUnderCap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "only"}))

	trimmed, err := s.TrimMessages(ctx, "u1", "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, trimmed)

	history, err := s.FetchHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
}

func TestDrainSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMetadata(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleUser, Text: "meta"}))
	require.NoError(t, s.AppendMessage(ctx, "u1", "s1", models.ConversationTurn{Role: models.RoleModel, Text: "msg"}))
	require.NoError(t, s.ReplaceOrderMapping(ctx, "u1", "s1", []models.OrderShipmentRecord{
		{SaleOrderNum: "SO-1", Shipment: "SHP-1"},
	}))

	history, orders, err := s.DrainSession(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, history.Metadata, 1)
	require.Len(t, history.Messages, 1)
	require.Len(t, orders, 1)

	after, err := s.FetchHistory(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, after.Combined())

	afterOrders, err := s.FetchOrderMapping(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, afterOrders)
}
