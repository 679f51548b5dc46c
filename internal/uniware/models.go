package uniware

import "fulfillment-assistant/internal/assistant/filters"

// Channel as returned by the channel listing endpoint.
type Channel struct {
	ChannelID int       `json:"channelId"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	SourceDTO SourceDTO `json:"sourceDTO"`
}

type SourceDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ChannelsResponse struct {
	Successful bool      `json:"successful"`
	Channels   []Channel `json:"channels"`
}

// Facility as returned by the facility listing endpoint.
type Facility struct {
	Code        string `json:"code"`
	DisplayName string `json:"displayName"`
	Current     bool   `json:"current,omitempty"`
}

type FacilitiesResponse struct {
	Successful      bool       `json:"successful"`
	FacilityDTOList []Facility `json:"facilityDTOList"`
}

type SwitchFacilityResponse struct {
	Successful bool   `json:"successful"`
	Message    string `json:"message,omitempty"`
}

// ExportRequest is the bulk tabular export payload. DisableLabelMany is a
// string on the wire, an upstream quirk preserved as-is.
type ExportRequest struct {
	Columns          []string             `json:"columns"`
	FetchResultCount bool                 `json:"fetchResultCount"`
	DisableLabelMany string               `json:"disableLabelMany"`
	NoOfResults      int                  `json:"noOfResults"`
	Start            int                  `json:"start"`
	Name             string               `json:"name"`
	Filters          []filters.Normalized `json:"filters"`
}

// ExportResponse is a flat row/column table; values are positionally aligned
// with the requested columns.
type ExportRow struct {
	Values []interface{} `json:"values"`
}

type ExportResponse struct {
	Successful  bool        `json:"successful"`
	ResultCount int         `json:"resultCount"`
	Rows        []ExportRow `json:"rows"`
}

// ShippingPackage is one package of an order in the per-order detail fetch.
type ShippingPackage struct {
	Code        string `json:"code"`
	Channel     string `json:"channel,omitempty"`
	ChannelName string `json:"channelName,omitempty"`
	ChannelID   int    `json:"channelId,omitempty"`
}

type ShippingPackagesResponse struct {
	Successful       bool              `json:"successful"`
	Message          string            `json:"message,omitempty"`
	ShippingPackages []ShippingPackage `json:"shippingPackages"`
}

// Picklist fetch response. The endpoint names the aggregate "packlist".
type PicklistItem struct {
	SaleOrderCode string `json:"saleOrderCode"`
	Code          string `json:"code"`
}

type Packlist struct {
	Code          string         `json:"code"`
	PacklistItems []PicklistItem `json:"packlistItems"`
}

type PicklistResponse struct {
	Successful bool     `json:"successful"`
	Packlist   Packlist `json:"packlist"`
}

// InvoiceResponse is the body of an invoice-create call. The API is known to
// report successful=false with a populated invoice code on idempotent
// re-creation.
type InvoiceResponse struct {
	Successful        bool   `json:"successful"`
	InvoiceCode       string `json:"invoiceCode"`
	ShippingLabelLink string `json:"shippingLabelLink,omitempty"`
	Message           string `json:"message,omitempty"`
}

// InvoiceResult pairs the HTTP status with the (possibly undecodable) body.
// Invoice is nil when the body was not valid JSON.
type InvoiceResult struct {
	StatusCode int
	Body       string
	Invoice    *InvoiceResponse
}

// AllocationResponse is the body of a provider/label allocation call.
type AllocationResponse struct {
	Successful           bool   `json:"successful"`
	ShippingProviderCode string `json:"shippingProviderCode"`
	Message              string `json:"message,omitempty"`
}

type AllocationResult struct {
	StatusCode int
	Body       string
	Allocation *AllocationResponse
}
