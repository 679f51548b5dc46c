package store

import (
	"context"
	"database/sql"

	"fulfillment-assistant/internal/common/database"
	stderrors "fulfillment-assistant/internal/common/errors"
	"fulfillment-assistant/internal/models"
)

const (
	insertTurnQuery = `INSERT INTO conversation_archive
		(tenant_code, user_id, session_id, kind, role, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertOrderQuery = `INSERT INTO order_mapping_archive
		(tenant_code, user_id, session_id, sale_order_num, shipment, channel, channel_name, channel_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

// ArchiveStore writes retired session state into Postgres. Archived rows
// are append-only; nothing in the live pipeline reads them back.
type ArchiveStore struct {
	db *sql.DB
}

func NewArchiveStore(client *database.PostgresClient) *ArchiveStore {
	return &ArchiveStore{db: client.GetDB()}
}

// ArchiveSession writes a drained session (both conversation sub-sequences
// and the order mapping) in a single transaction.
func (a *ArchiveStore) ArchiveSession(ctx context.Context, tenantCode, userID, sessionID string, history *models.History, orders []models.OrderShipmentRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return stderrors.NewArchiveFailedError("begin", err)
	}
	defer tx.Rollback()

	if err := a.insertTurns(ctx, tx, tenantCode, userID, sessionID, "metadata", history.Metadata); err != nil {
		return err
	}
	if err := a.insertTurns(ctx, tx, tenantCode, userID, sessionID, "message", history.Messages); err != nil {
		return err
	}
	for _, rec := range orders {
		_, err := tx.ExecContext(ctx, insertOrderQuery,
			tenantCode, userID, sessionID,
			rec.SaleOrderNum, rec.Shipment, rec.Channel, rec.ChannelName, rec.ChannelID)
		if err != nil {
			return stderrors.NewArchiveFailedError("insert order", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return stderrors.NewArchiveFailedError("commit", err)
	}
	return nil
}

// ArchiveMessages writes trimmed message turns. Called after every turn
// when the live message list exceeds the retention cap.
func (a *ArchiveStore) ArchiveMessages(ctx context.Context, tenantCode, userID, sessionID string, turns []models.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return stderrors.NewArchiveFailedError("begin", err)
	}
	defer tx.Rollback()

	if err := a.insertTurns(ctx, tx, tenantCode, userID, sessionID, "message", turns); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return stderrors.NewArchiveFailedError("commit", err)
	}
	return nil
}

// ArchiveOrders writes a consumed order mapping before it is replaced by
// a fresh resolution.
func (a *ArchiveStore) ArchiveOrders(ctx context.Context, tenantCode, userID, sessionID string, orders []models.OrderShipmentRecord) error {
	if len(orders) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return stderrors.NewArchiveFailedError("begin", err)
	}
	defer tx.Rollback()

	for _, rec := range orders {
		_, err := tx.ExecContext(ctx, insertOrderQuery,
			tenantCode, userID, sessionID,
			rec.SaleOrderNum, rec.Shipment, rec.Channel, rec.ChannelName, rec.ChannelID)
		if err != nil {
			return stderrors.NewArchiveFailedError("insert order", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return stderrors.NewArchiveFailedError("commit", err)
	}
	return nil
}

func (a *ArchiveStore) insertTurns(ctx context.Context, tx *sql.Tx, tenantCode, userID, sessionID, kind string, turns []models.ConversationTurn) error {
	for _, turn := range turns {
		_, err := tx.ExecContext(ctx, insertTurnQuery,
			tenantCode, userID, sessionID, kind, string(turn.Role), turn.Text, turn.Timestamp)
		if err != nil {
			return stderrors.NewArchiveFailedError("insert turn", err)
		}
	}
	return nil
}
