package models

// Entity selects the resolver branch a filter request applies to.
type Entity string

const (
	EntitySaleOrder Entity = "SaleOrder"
	EntityPicklist  Entity = "Picklist"
)

// FilterEntry is one abstract filter as authored by the user/model. Keys come
// from a fixed vocabulary; entries with unknown keys are skipped during
// normalization, not rejected.
type FilterEntry struct {
	Key            string   `json:"key"`
	SelectedValues []string `json:"selectedValues"`
}

// FilterRequest is the model-produced selection criteria for one resolution.
type FilterRequest struct {
	Entity  Entity        `json:"entity"`
	Filters []FilterEntry `json:"filterOptions"`
}

// OrderShipmentRecord is one shipping package belonging to one order, the
// unit of work for fulfillment. Records are replaced wholesale on every
// resolution, never mutated in place.
type OrderShipmentRecord struct {
	SaleOrderNum string `json:"saleOrderNum"`
	Shipment     string `json:"shipment"`
	Channel      string `json:"channel,omitempty"`
	ChannelName  string `json:"channelName,omitempty"`
	ChannelID    int    `json:"channelId,omitempty"`
}
