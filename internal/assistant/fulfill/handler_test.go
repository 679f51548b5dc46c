package fulfill

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/models"
	"fulfillment-assistant/internal/uniware"
)

type fakeFulfillmentAPI struct {
	mu sync.Mutex

	invoices    map[string]*uniware.InvoiceResult
	allocations map[string]*uniware.AllocationResult

	printCalls   [][]string
	printDoc     []byte
	printErr     error
	invoiceCalls [][]string
	invoiceDoc   []byte
	invoiceErr   error
	labelCalls   [][]string
	labelDoc     []byte
	labelErr     error
}

func (f *fakeFulfillmentAPI) CreateInvoice(_ context.Context, code string) (*uniware.InvoiceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.invoices[code]; ok {
		return res, nil
	}
	return nil, errors.New("no stub for " + code)
}

func (f *fakeFulfillmentAPI) AllocateProvider(_ context.Context, code string) (*uniware.AllocationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.allocations[code]; ok {
		return res, nil
	}
	return nil, errors.New("no stub for " + code)
}

func (f *fakeFulfillmentAPI) PrintInvoiceAndLabel(_ context.Context, codes []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.printCalls = append(f.printCalls, codes)
	return f.printDoc, f.printErr
}

func (f *fakeFulfillmentAPI) ShowInvoices(_ context.Context, codes []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoiceCalls = append(f.invoiceCalls, codes)
	return f.invoiceDoc, f.invoiceErr
}

func (f *fakeFulfillmentAPI) ShowLabels(_ context.Context, codes []string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labelCalls = append(f.labelCalls, codes)
	return f.labelDoc, f.labelErr
}

func newTestHandler(api *fakeFulfillmentAPI) *Handler {
	return NewHandler(api, nil, Config{Concurrency: 2}, logger.NewNoOpLogger())
}

func order(n, s string) models.OrderShipmentRecord {
	return models.OrderShipmentRecord{SaleOrderNum: n, Shipment: s}
}

func TestFulfillIdempotentInvoiceCountsAsSuccess(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{
				Successful: false, InvoiceCode: "INV-1", ShippingLabelLink: "https://labels/x",
			}},
		},
		printDoc: []byte("%PDF-combined"),
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{order("SO-1", "SHP-1")})
	require.NoError(t, err)

	require.Len(t, api.printCalls, 1)
	assert.Equal(t, []string{"SHP-1"}, api.printCalls[0])
	assert.Equal(t, []byte("%PDF-combined"), res.Document)
	assert.Contains(t, res.Summary, "1 succeeded, 0 failed")
}

func TestFulfillNoQueuesNoDocument(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 404, Body: "not found"},
			"SHP-2": {StatusCode: 502, Body: "bad gateway"},
		},
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{
		order("SO-1", "SHP-1"), order("SO-2", "SHP-2"),
	})
	require.NoError(t, err)

	assert.Nil(t, res.Document)
	assert.Contains(t, res.Summary, "0 succeeded, 2 failed")
	assert.Contains(t, res.Summary, "client error 404")
	assert.Contains(t, res.Summary, "unexpected status 502")
	assert.Empty(t, api.printCalls)
	assert.Empty(t, api.invoiceCalls)
}

func TestFulfillNonJSONSuccessBodyIsFailed(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Body: "<html>gateway</html>", Invoice: nil},
		},
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{order("SO-1", "SHP-1")})
	require.NoError(t, err)
	assert.Nil(t, res.Document)
	assert.Contains(t, res.Summary, "not valid JSON")
}

func TestFulfillLabelBulkFailureKeepsInvoiceDocument(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{Successful: true, InvoiceCode: "INV-1"}},
		},
		allocations: map[string]*uniware.AllocationResult{
			"SHP-1": {StatusCode: 200, Allocation: &uniware.AllocationResponse{Successful: true, ShippingProviderCode: "DELHIVERY"}},
		},
		invoiceDoc: []byte("%PDF-invoices"),
		labelErr:   errors.New("status 500: not a pdf"),
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{order("SO-1", "SHP-1")})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-invoices"), res.Document, "invoice-only document survives the label failure")
	assert.Contains(t, res.Summary, "label generation failed")
	require.Len(t, api.invoiceCalls, 1)
	assert.Equal(t, []string{"INV-1"}, api.invoiceCalls[0])
	require.Len(t, api.labelCalls, 1)
}

func TestFulfillInvoiceOnlyThenLabelMerge(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{Successful: true, InvoiceCode: "INV-1"}},
			"SHP-2": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{Successful: true, InvoiceCode: "INV-2"}},
		},
		allocations: map[string]*uniware.AllocationResult{
			"SHP-1": {StatusCode: 200, Allocation: &uniware.AllocationResponse{Successful: true}},
			"SHP-2": {StatusCode: 400, Body: "no provider"},
		},
		invoiceDoc: []byte("%PDF-inv"),
		labelDoc:   []byte("%PDF-lbl"),
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{
		order("SO-1", "SHP-1"), order("SO-2", "SHP-2"),
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-inv%PDF-lbl"), res.Document, "invoice pages precede label pages")
	assert.Contains(t, res.Summary, "Labels: 1 allocated, 1 failed")
	require.Len(t, api.labelCalls, 1)
	assert.Equal(t, []string{"SHP-1"}, api.labelCalls[0], "only allocated shipments are fetched")
}

func TestFulfillMixedBatchRouting(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-FAIL": {StatusCode: 400, Body: "bad shipment"},
			"SHP-OK": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{
				Successful: true, InvoiceCode: "INV-OK", ShippingLabelLink: "https://labels/ok",
			}},
		},
		printDoc: []byte("%PDF-combined"),
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{
		order("SO-1", "SHP-FAIL"), order("SO-2", "SHP-OK"),
	})
	require.NoError(t, err)

	require.Len(t, api.printCalls, 1)
	assert.Equal(t, []string{"SHP-OK"}, api.printCalls[0], "only the combined queue is printed")
	assert.Empty(t, api.invoiceCalls)
	assert.Equal(t, []byte("%PDF-combined"), res.Document)
	assert.Contains(t, res.Summary, "1 succeeded, 1 failed")
}

func TestFulfillCombinedBulkFailureStopsPipeline(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{
				Successful: true, InvoiceCode: "INV-1", ShippingLabelLink: "https://labels/x",
			}},
		},
		printErr: errors.New("status 500: not a pdf"),
	}

	res, err := newTestHandler(api).Fulfill(context.Background(), []models.OrderShipmentRecord{order("SO-1", "SHP-1")})
	require.NoError(t, err)

	assert.Nil(t, res.Document)
	assert.Contains(t, res.Summary, "Internal error")
	assert.Empty(t, api.invoiceCalls)
	assert.Empty(t, api.labelCalls)
}

func TestFulfillEmptyBatch(t *testing.T) {
	res, err := newTestHandler(&fakeFulfillmentAPI{}).Fulfill(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Document)
	assert.Equal(t, "No orders to process.", res.Summary)
}

type fakeUploader struct {
	key  string
	data []byte
	err  error
}

func (f *fakeUploader) UploadDocument(_ context.Context, key string, data []byte) (string, error) {
	f.key = key
	f.data = data
	if f.err != nil {
		return "", f.err
	}
	return "https://bucket/" + key, nil
}

func TestFulfillUploadsAssembledDocument(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{
				Successful: true, InvoiceCode: "INV-1", ShippingLabelLink: "https://labels/x",
			}},
		},
		printDoc: []byte("%PDF-combined"),
	}
	up := &fakeUploader{}
	h := NewHandler(api, up, Config{Concurrency: 2}, logger.NewNoOpLogger())

	res, err := h.Fulfill(context.Background(), []models.OrderShipmentRecord{order("SO-1", "SHP-1")})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-combined"), up.data)
	assert.Contains(t, res.Summary, "https://bucket/documents/")
}

func TestFulfillUploadFailureKeepsDocumentInline(t *testing.T) {
	api := &fakeFulfillmentAPI{
		invoices: map[string]*uniware.InvoiceResult{
			"SHP-1": {StatusCode: 200, Invoice: &uniware.InvoiceResponse{
				Successful: true, InvoiceCode: "INV-1", ShippingLabelLink: "https://labels/x",
			}},
		},
		printDoc: []byte("%PDF-combined"),
	}
	up := &fakeUploader{err: errors.New("access denied")}
	h := NewHandler(api, up, Config{Concurrency: 2}, logger.NewNoOpLogger())

	res, err := h.Fulfill(context.Background(), []models.OrderShipmentRecord{order("SO-1", "SHP-1")})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-combined"), res.Document)
	assert.NotContains(t, res.Summary, "https://bucket/")
}

func TestFoldBuckets(t *testing.T) {
	buckets := Fold([]Outcome{
		{Shipment: "a", Stage: StageInvoice, Status: StatusSuccess, LabelLink: "x"},
		{Shipment: "b", Stage: StageInvoice, Status: StatusSuccess},
		{Shipment: "c", Stage: StageInvoice, Status: StatusFailed},
		{Shipment: "d", Stage: StageLabel, Status: StatusSuccess},
		{Shipment: "e", Stage: StageLabel, Status: StatusFailed},
	})

	assert.Len(t, buckets.InvoiceSuccess, 2)
	assert.Len(t, buckets.InvoiceFailed, 1)
	assert.Len(t, buckets.LabelSuccess, 1)
	assert.Len(t, buckets.LabelFailed, 1)

	combined, invoiceOnly := buckets.PrintQueues()
	require.Len(t, combined, 1)
	require.Len(t, invoiceOnly, 1)
	assert.Equal(t, "a", combined[0].Shipment)
	assert.Equal(t, "b", invoiceOnly[0].Shipment)
}
