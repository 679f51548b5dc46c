// Package uniware is the HTTP client for the order-management API. All calls
// carry the per-request identity cookie from reqctx and a timeout; a call
// that times out is a failure for its stage, never a hang.
package uniware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fulfillment-assistant/internal/common/config"
	stderrors "fulfillment-assistant/internal/common/errors"
	commonhttp "fulfillment-assistant/internal/common/http"
	"fulfillment-assistant/internal/common/metrics"
	"fulfillment-assistant/internal/common/reqctx"
)

const (
	endpointChannels             = "/data/channel/getChannels"
	endpointFacilities           = "/data/user/facilities"
	endpointSwitchFacility       = "/data/user/switchFacility"
	endpointExport               = "/data/tasks/export/data"
	endpointShippingPackages     = "/data/oms/saleorder/fetchShippingPackageDetails"
	endpointPicklistFetch        = "/data/oms/packer/packlist/fetch"
	endpointInvoiceCreate        = "/data/oms/invoice/create"
	endpointPrintInvoiceAndLabel = "/data/oms/shipment/printInvoiceAndLabel/bulk"
	endpointShowInvoices         = "/data/oms/invoice/show/bulk"
	endpointAllocateProvider     = "/data/oms/shipment/provider/allocate"
	endpointShowLabels           = "/data/oms/shipment/show/bulk"

	pdfContentType = "application/pdf"
)

type Client struct {
	baseURL string
	http    *commonhttp.Client
}

func NewClient(cfg config.UniwareConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    commonhttp.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
	}
}

// response is the raw outcome of one API call before typed decoding.
type response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (c *Client) headers(ctx context.Context) map[string]string {
	h := map[string]string{}
	if id, ok := reqctx.From(ctx); ok && id.AuthCookie != "" {
		h["Cookie"] = id.AuthCookie
	}
	return h
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}) (*response, error) {
	start := time.Now()
	resp, err := c.http.PostJSON(ctx, c.baseURL+endpoint, payload, c.headers(ctx))
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("uniware %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("uniware %s: read body: %w", endpoint, err)
	}

	return &response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*response, error) {
	start := time.Now()
	resp, err := c.http.Get(ctx, c.baseURL+endpoint, c.headers(ctx))
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("uniware %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("uniware %s: read body: %w", endpoint, err)
	}

	return &response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// decodeOrFail maps a raw response to the status-code taxonomy and decodes a
// 2xx body into out.
func decodeOrFail(endpoint string, raw *response, out interface{}) error {
	switch {
	case raw.StatusCode >= 200 && raw.StatusCode < 300:
		if err := json.Unmarshal(raw.Body, out); err != nil {
			return stderrors.NewMalformedResponseError(endpoint, err)
		}
		return nil
	case raw.StatusCode >= 400 && raw.StatusCode < 500:
		return stderrors.NewUpstreamClientError(endpoint, raw.StatusCode, string(raw.Body))
	default:
		return stderrors.NewUpstreamServerError(endpoint, raw.StatusCode, string(raw.Body))
	}
}

// GetChannels lists the tenant's sales channels.
func (c *Client) GetChannels(ctx context.Context) (*ChannelsResponse, error) {
	raw, err := c.post(ctx, endpointChannels, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	var out ChannelsResponse
	if err := decodeOrFail(endpointChannels, raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFacilities lists the facilities visible to the current user.
func (c *Client) GetFacilities(ctx context.Context) (*FacilitiesResponse, error) {
	raw, err := c.get(ctx, endpointFacilities)
	if err != nil {
		return nil, err
	}

	var out FacilitiesResponse
	if err := decodeOrFail(endpointFacilities, raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SwitchFacility changes the session's active facility.
func (c *Client) SwitchFacility(ctx context.Context, facilityCode string) error {
	raw, err := c.post(ctx, endpointSwitchFacility, map[string]string{
		"facilityCode": facilityCode,
	})
	if err != nil {
		return err
	}

	var out SwitchFacilityResponse
	if err := decodeOrFail(endpointSwitchFacility, raw, &out); err != nil {
		return err
	}
	if !out.Successful {
		return stderrors.NewUpstreamClientError(endpointSwitchFacility, raw.StatusCode, out.Message)
	}
	return nil
}

// ExportData runs one bulk tabular export.
func (c *Client) ExportData(ctx context.Context, req ExportRequest) (*ExportResponse, error) {
	raw, err := c.post(ctx, endpointExport, req)
	if err != nil {
		return nil, err
	}

	var out ExportResponse
	if err := decodeOrFail(endpointExport, raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchShippingPackages fetches the shipping packages of one order by code.
func (c *Client) FetchShippingPackages(ctx context.Context, saleOrderCode string) (*ShippingPackagesResponse, error) {
	raw, err := c.post(ctx, endpointShippingPackages, map[string]string{
		"saleOrderCode": saleOrderCode,
	})
	if err != nil {
		return nil, err
	}

	var out ShippingPackagesResponse
	if err := decodeOrFail(endpointShippingPackages, raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPicklist fetches one picklist by code.
func (c *Client) FetchPicklist(ctx context.Context, picklistCode string) (*PicklistResponse, error) {
	raw, err := c.post(ctx, endpointPicklistFetch, map[string]string{
		"picklistCode": picklistCode,
	})
	if err != nil {
		return nil, err
	}

	var out PicklistResponse
	if err := decodeOrFail(endpointPicklistFetch, raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvoice requests invoice creation for one shipping package. The
// status code and raw body are returned alongside the decoded form so the
// caller can apply its own per-order classification; the error covers only
// transport failures.
func (c *Client) CreateInvoice(ctx context.Context, shippingPackageCode string) (*InvoiceResult, error) {
	raw, err := c.post(ctx, endpointInvoiceCreate, map[string]string{
		"shippingPackageCode": shippingPackageCode,
	})
	if err != nil {
		return nil, err
	}

	result := &InvoiceResult{StatusCode: raw.StatusCode, Body: string(raw.Body)}
	if raw.StatusCode >= 200 && raw.StatusCode < 300 {
		var inv InvoiceResponse
		if jsonErr := json.Unmarshal(raw.Body, &inv); jsonErr == nil {
			result.Invoice = &inv
		}
	}
	return result, nil
}

// AllocateProvider requests shipping-provider/label allocation for one
// shipping package. Same contract as CreateInvoice.
func (c *Client) AllocateProvider(ctx context.Context, shippingPackageCode string) (*AllocationResult, error) {
	raw, err := c.post(ctx, endpointAllocateProvider, map[string]string{
		"shippingPackageCode": shippingPackageCode,
	})
	if err != nil {
		return nil, err
	}

	result := &AllocationResult{StatusCode: raw.StatusCode, Body: string(raw.Body)}
	if raw.StatusCode >= 200 && raw.StatusCode < 300 {
		var alloc AllocationResponse
		if jsonErr := json.Unmarshal(raw.Body, &alloc); jsonErr == nil {
			result.Allocation = &alloc
		}
	}
	return result, nil
}

// fetchPDF issues a bulk document request and enforces the 200 + PDF
// contract; anything else is a document-assembly failure.
func (c *Client) fetchPDF(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	raw, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return nil, stderrors.NewDocumentAssemblyFailureError(endpoint, err.Error())
	}
	if raw.StatusCode != http.StatusOK || !strings.Contains(raw.ContentType, pdfContentType) {
		return nil, stderrors.NewDocumentAssemblyFailureError(endpoint,
			fmt.Sprintf("status: %d, contentType: %s", raw.StatusCode, raw.ContentType))
	}
	return raw.Body, nil
}

// PrintInvoiceAndLabel fetches the combined invoice+label PDF for shipments.
func (c *Client) PrintInvoiceAndLabel(ctx context.Context, shippingPackageCodes []string) ([]byte, error) {
	return c.fetchPDF(ctx, endpointPrintInvoiceAndLabel, map[string][]string{
		"shippingPackageCodes": shippingPackageCodes,
	})
}

// ShowInvoices fetches the bulk invoice PDF for invoice codes.
func (c *Client) ShowInvoices(ctx context.Context, invoiceCodes []string) ([]byte, error) {
	return c.fetchPDF(ctx, endpointShowInvoices, map[string][]string{
		"invoiceCodes": invoiceCodes,
	})
}

// ShowLabels fetches the bulk label PDF for shipments.
func (c *Client) ShowLabels(ctx context.Context, shippingPackageCodes []string) ([]byte, error) {
	return c.fetchPDF(ctx, endpointShowLabels, map[string][]string{
		"shippingPackageCodes": shippingPackageCodes,
	})
}
