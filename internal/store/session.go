// Package store persists per-session conversation state. Live state (the
// conversation lists and the resolved order mapping) lives in Redis keyed by
// user and session; Postgres holds the long-term archive.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fulfillment-assistant/internal/common/database"
	stderrors "fulfillment-assistant/internal/common/errors"
	"fulfillment-assistant/internal/models"
)

// SessionStore keeps the live conversation in three Redis lists per session:
// metadata turns, message turns and the resolved order mapping.
type SessionStore struct {
	rdb *redis.Client
}

func NewSessionStore(client *database.RedisClient) *SessionStore {
	return &SessionStore{rdb: client.GetClient()}
}

func messagesKey(userID, sessionID string) string {
	return fmt.Sprintf("chat:%s:%s:messages", userID, sessionID)
}

func metadataKey(userID, sessionID string) string {
	return fmt.Sprintf("chat:%s:%s:metadata", userID, sessionID)
}

func ordersKey(userID, sessionID string) string {
	return fmt.Sprintf("chat:%s:%s:orders", userID, sessionID)
}

// FetchHistory returns the session's metadata and message turns in insertion
// order. A session with no state yields an empty history, not an error.
func (s *SessionStore) FetchHistory(ctx context.Context, userID, sessionID string) (*models.History, error) {
	metadata, err := s.readTurns(ctx, metadataKey(userID, sessionID))
	if err != nil {
		return nil, err
	}
	messages, err := s.readTurns(ctx, messagesKey(userID, sessionID))
	if err != nil {
		return nil, err
	}
	return &models.History{Metadata: metadata, Messages: messages}, nil
}

func (s *SessionStore) readTurns(ctx context.Context, key string) ([]models.ConversationTurn, error) {
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, stderrors.NewSessionStoreFailedError("lrange "+key, err)
	}
	turns := make([]models.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, stderrors.NewSessionStoreFailedError("decode turn in "+key, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendMessage pushes one turn onto the message list.
func (s *SessionStore) AppendMessage(ctx context.Context, userID, sessionID string, turn models.ConversationTurn) error {
	return s.appendTurn(ctx, messagesKey(userID, sessionID), turn)
}

// AppendMetadata pushes one turn onto the metadata list.
func (s *SessionStore) AppendMetadata(ctx context.Context, userID, sessionID string, turn models.ConversationTurn) error {
	return s.appendTurn(ctx, metadataKey(userID, sessionID), turn)
}

func (s *SessionStore) appendTurn(ctx context.Context, key string, turn models.ConversationTurn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(turn)
	if err != nil {
		return stderrors.NewSessionStoreFailedError("encode turn", err)
	}
	if err := s.rdb.RPush(ctx, key, payload).Err(); err != nil {
		return stderrors.NewSessionStoreFailedError("rpush "+key, err)
	}
	return nil
}

// ClearMetadata drops all metadata turns for the session. Used when a
// facility switch invalidates the stored reference facts.
func (s *SessionStore) ClearMetadata(ctx context.Context, userID, sessionID string) error {
	if err := s.rdb.Del(ctx, metadataKey(userID, sessionID)).Err(); err != nil {
		return stderrors.NewSessionStoreFailedError("del metadata", err)
	}
	return nil
}

// ReplaceOrderMapping wholesale-replaces the session's resolved order set.
// An empty slice clears the mapping.
func (s *SessionStore) ReplaceOrderMapping(ctx context.Context, userID, sessionID string, records []models.OrderShipmentRecord) error {
	key := ordersKey(userID, sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return stderrors.NewSessionStoreFailedError("encode order record", err)
		}
		pipe.RPush(ctx, key, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return stderrors.NewSessionStoreFailedError("replace orders", err)
	}
	return nil
}

// FetchOrderMapping returns the session's resolved orders in stored order.
func (s *SessionStore) FetchOrderMapping(ctx context.Context, userID, sessionID string) ([]models.OrderShipmentRecord, error) {
	raw, err := s.rdb.LRange(ctx, ordersKey(userID, sessionID), 0, -1).Result()
	if err != nil {
		return nil, stderrors.NewSessionStoreFailedError("lrange orders", err)
	}
	records := make([]models.OrderShipmentRecord, 0, len(raw))
	for _, item := range raw {
		var rec models.OrderShipmentRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, stderrors.NewSessionStoreFailedError("decode order record", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// TrimMessages drops the oldest message turns so at most keep remain,
// returning the trimmed turns for archival. Metadata turns are never
// trimmed.
func (s *SessionStore) TrimMessages(ctx context.Context, userID, sessionID string, keep int) ([]models.ConversationTurn, error) {
	key := messagesKey(userID, sessionID)
	total, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return nil, stderrors.NewSessionStoreFailedError("llen "+key, err)
	}
	excess := total - int64(keep)
	if excess <= 0 {
		return nil, nil
	}

	raw, err := s.rdb.LRange(ctx, key, 0, excess-1).Result()
	if err != nil {
		return nil, stderrors.NewSessionStoreFailedError("lrange "+key, err)
	}
	trimmed := make([]models.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn models.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, stderrors.NewSessionStoreFailedError("decode turn in "+key, err)
		}
		trimmed = append(trimmed, turn)
	}

	if err := s.rdb.LTrim(ctx, key, excess, -1).Err(); err != nil {
		return nil, stderrors.NewSessionStoreFailedError("ltrim "+key, err)
	}
	return trimmed, nil
}

// DrainSession removes and returns all live state for the session. Used on
// initiate to archive everything before starting fresh.
func (s *SessionStore) DrainSession(ctx context.Context, userID, sessionID string) (*models.History, []models.OrderShipmentRecord, error) {
	history, err := s.FetchHistory(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.FetchOrderMapping(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	err = s.rdb.Del(ctx,
		messagesKey(userID, sessionID),
		metadataKey(userID, sessionID),
		ordersKey(userID, sessionID),
	).Err()
	if err != nil {
		return nil, nil, stderrors.NewSessionStoreFailedError("drain session", err)
	}
	return history, orders, nil
}
