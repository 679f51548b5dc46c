// Package audit records fulfillment runs into an Elasticsearch index for
// operational review. Indexing is best-effort; a failed write never affects
// the conversational flow.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"fulfillment-assistant/internal/common/database"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/reqctx"
)

const defaultIndex = "fulfillment-runs"

// RunRecord is one indexed fulfillment run.
type RunRecord struct {
	TenantCode    string    `json:"tenantCode"`
	UserID        string    `json:"userId"`
	SessionID     string    `json:"sessionId"`
	Tool          string    `json:"tool"`
	OrderCount    int       `json:"orderCount"`
	Summary       string    `json:"summary"`
	DocumentBytes int       `json:"documentBytes"`
	Timestamp     time.Time `json:"@timestamp"`
}

type Indexer struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *database.ElasticsearchClient, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = defaultIndex
	}
	return &Indexer{es: client.Client, index: index, logger: log}
}

// RecordRun indexes one run, filling identity fields from the request
// context. Errors are logged and swallowed.
func (i *Indexer) RecordRun(ctx context.Context, tool string, orderCount int, summary string, documentBytes int) {
	id := reqctx.FromOrZero(ctx)
	record := RunRecord{
		TenantCode:    id.TenantCode,
		UserID:        id.UserID,
		SessionID:     id.SessionID,
		Tool:          tool,
		OrderCount:    orderCount,
		Summary:       summary,
		DocumentBytes: documentBytes,
		Timestamp:     time.Now().UTC(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		i.logger.Warn("audit record encode failed", map[string]interface{}{"error": err.Error()})
		return
	}

	res, err := i.es.Index(i.index, bytes.NewReader(payload), i.es.Index.WithContext(ctx))
	if err != nil {
		i.logger.Warn("audit index failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		i.logger.Warn("audit index rejected", map[string]interface{}{"status": fmt.Sprint(res.StatusCode)})
	}
}
