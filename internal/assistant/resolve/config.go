package resolve

// Export view and projection used by the bulk listing query. The upstream
// export endpoint is a generic tabular engine; the view name selects the
// shipments datatable and the column list fixes the row shape.
const (
	exportViewName = "DATATABLE SHIPMENTS TAB"

	colSaleOrderNum   = "saleOrderNum"
	colChannel        = "channel"
	colPicklist       = "picklist"
	colFulfillmentTat = "fulfillmentTat"
	colShipment       = "shipment"
	colChannelName    = "channelName"
	colChannelID      = "channelId"
)

func exportColumns() []string {
	return []string{
		colSaleOrderNum,
		colChannel,
		colPicklist,
		colFulfillmentTat,
		colShipment,
		colChannelName,
		colChannelID,
	}
}

// Config holds the resolver tunables.
type Config struct {
	// ExportResultCap bounds the bulk listing query.
	ExportResultCap int
}

func (c Config) resultCap() int {
	if c.ExportResultCap <= 0 {
		return 5000
	}
	return c.ExportResultCap
}
