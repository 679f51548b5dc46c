// Package resolve turns normalized filters into the session's order-shipment
// mapping by querying the order-management API.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"fulfillment-assistant/internal/assistant/filters"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/reqctx"
	"fulfillment-assistant/internal/models"
	"fulfillment-assistant/internal/uniware"
)

// OrderAPI is the slice of the order-management client the resolver needs.
type OrderAPI interface {
	ExportData(ctx context.Context, req uniware.ExportRequest) (*uniware.ExportResponse, error)
	FetchShippingPackages(ctx context.Context, saleOrderCode string) (*uniware.ShippingPackagesResponse, error)
	FetchPicklist(ctx context.Context, picklistCode string) (*uniware.PicklistResponse, error)
}

// MappingStore persists the resolved order set for the session.
type MappingStore interface {
	ReplaceOrderMapping(ctx context.Context, userID, sessionID string, records []models.OrderShipmentRecord) error
}

type Handler struct {
	api    OrderAPI
	store  MappingStore
	config Config
	logger logger.Logger
}

func NewHandler(api OrderAPI, store MappingStore, cfg Config, log logger.Logger) *Handler {
	return &Handler{api: api, store: store, config: cfg, logger: log}
}

// Resolve normalizes the filter entries, queries the appropriate listing
// path and wholesale-replaces the session's order mapping with the result.
// The returned summary, not the records, is what re-enters the conversation.
func (h *Handler) Resolve(ctx context.Context, entity models.Entity, entries []models.FilterEntry) ([]models.OrderShipmentRecord, string, error) {
	normalized, err := filters.Normalize(entity, entries)
	if err != nil {
		return nil, "", err
	}

	var (
		records []models.OrderShipmentRecord
		notes   []string
	)
	switch {
	case entity == models.EntityPicklist:
		records, notes = h.resolvePicklists(ctx, filters.PicklistCodes(entries))
	case len(normalized) == 1 && normalized[0].ID == filters.IDSaleOrderCodes:
		records, notes = h.resolveByCodes(ctx, normalized[0].SaleOrderCodes)
	default:
		var err error
		records, err = h.resolveByExport(ctx, normalized)
		if err != nil {
			return nil, "", err
		}
	}

	summary := h.buildSummary(records, notes)
	if len(records) > 0 {
		id := reqctx.FromOrZero(ctx)
		if err := h.store.ReplaceOrderMapping(ctx, id.UserID, id.SessionID, records); err != nil {
			return nil, "", err
		}
	}
	return records, summary, nil
}

// resolveByCodes looks up each order code independently. A failed code adds
// a note but does not stop the remaining lookups.
func (h *Handler) resolveByCodes(ctx context.Context, codes []string) ([]models.OrderShipmentRecord, []string) {
	var (
		records []models.OrderShipmentRecord
		notes   []string
	)
	for _, code := range codes {
		resp, err := h.api.FetchShippingPackages(ctx, code)
		if err != nil {
			h.logger.Warn("shipping package fetch failed", map[string]interface{}{"saleOrderCode": code, "error": err.Error()})
			notes = append(notes, fmt.Sprintf("Invalid SaleOrderCode: %s", code))
			continue
		}
		if !resp.Successful || len(resp.ShippingPackages) == 0 {
			notes = append(notes, fmt.Sprintf("no shipment found for code %s", code))
			continue
		}
		for _, pkg := range resp.ShippingPackages {
			records = append(records, models.OrderShipmentRecord{
				SaleOrderNum: code,
				Shipment:     pkg.Code,
				Channel:      pkg.Channel,
				ChannelName:  pkg.ChannelName,
				ChannelID:    pkg.ChannelID,
			})
		}
	}
	return records, notes
}

// resolveByExport issues one bulk listing query and projects the tabular
// response down to order-shipment records.
func (h *Handler) resolveByExport(ctx context.Context, normalized []filters.Normalized) ([]models.OrderShipmentRecord, error) {
	columns := exportColumns()
	resp, err := h.api.ExportData(ctx, uniware.ExportRequest{
		Columns:          columns,
		FetchResultCount: true,
		DisableLabelMany: "false",
		NoOfResults:      h.config.resultCap(),
		Start:            0,
		Name:             exportViewName,
		Filters:          normalized,
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}

	records := make([]models.OrderShipmentRecord, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		// A short row cannot be projected reliably; drop it whole.
		if len(row.Values) < len(columns) {
			h.logger.Warn("dropping malformed export row", map[string]interface{}{"values": len(row.Values), "columns": len(columns)})
			continue
		}
		records = append(records, models.OrderShipmentRecord{
			SaleOrderNum: stringAt(row.Values, index[colSaleOrderNum]),
			Shipment:     stringAt(row.Values, index[colShipment]),
			Channel:      stringAt(row.Values, index[colChannel]),
			ChannelName:  stringAt(row.Values, index[colChannelName]),
			ChannelID:    intAt(row.Values, index[colChannelID]),
		})
	}
	return records, nil
}

// resolvePicklists fetches each picklist by code and flattens its items.
// Items without an order number are skipped.
func (h *Handler) resolvePicklists(ctx context.Context, codes []string) ([]models.OrderShipmentRecord, []string) {
	var (
		records []models.OrderShipmentRecord
		notes   []string
	)
	for _, code := range codes {
		resp, err := h.api.FetchPicklist(ctx, code)
		if err != nil || !resp.Successful {
			if err != nil {
				h.logger.Warn("picklist fetch failed", map[string]interface{}{"picklistCode": code, "error": err.Error()})
			}
			notes = append(notes, fmt.Sprintf("picklist %s may not exist", code))
			continue
		}
		for _, item := range resp.Packlist.PacklistItems {
			if item.SaleOrderCode == "" {
				continue
			}
			records = append(records, models.OrderShipmentRecord{
				SaleOrderNum: item.SaleOrderCode,
				Shipment:     item.Code,
			})
		}
	}
	return records, notes
}

func (h *Handler) buildSummary(records []models.OrderShipmentRecord, notes []string) string {
	var b strings.Builder
	if len(records) > 0 {
		fmt.Fprintf(&b, "Found %d orders matching the filters; the order mapping has been updated.", len(records))
	} else {
		b.WriteString("no orders found for the given filters.")
	}
	for _, note := range notes {
		b.WriteString(" ")
		b.WriteString(note)
	}
	return b.String()
}

func stringAt(values []interface{}, i int) string {
	switch v := values[i].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intAt(values []interface{}, i int) int {
	switch v := values[i].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
