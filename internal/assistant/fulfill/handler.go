// Package fulfill drives invoice creation, label allocation and bulk
// document assembly for a batch of resolved orders.
package fulfill

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/metrics"
	"fulfillment-assistant/internal/models"
	"fulfillment-assistant/internal/uniware"
)

// FulfillmentAPI is the slice of the order-management client the executor
// needs.
type FulfillmentAPI interface {
	CreateInvoice(ctx context.Context, shippingPackageCode string) (*uniware.InvoiceResult, error)
	AllocateProvider(ctx context.Context, shippingPackageCode string) (*uniware.AllocationResult, error)
	PrintInvoiceAndLabel(ctx context.Context, shippingPackageCodes []string) ([]byte, error)
	ShowInvoices(ctx context.Context, invoiceCodes []string) ([]byte, error)
	ShowLabels(ctx context.Context, shippingPackageCodes []string) ([]byte, error)
}

// Uploader stores an assembled document and returns a shareable link.
// Optional; a nil uploader skips the upload step.
type Uploader interface {
	UploadDocument(ctx context.Context, key string, data []byte) (string, error)
}

// Result is one fulfillment run's output. Document is nil when no bulk
// fetch succeeded.
type Result struct {
	Summary  string
	Document []byte
}

type Handler struct {
	api      FulfillmentAPI
	uploader Uploader
	config   Config
	logger   logger.Logger
}

func NewHandler(api FulfillmentAPI, uploader Uploader, cfg Config, log logger.Logger) *Handler {
	return &Handler{api: api, uploader: uploader, config: cfg, logger: log}
}

// Fulfill runs the three-stage pipeline over the batch. No single order's
// failure aborts the batch; only a failed bulk document fetch stops the
// remaining stages.
func (h *Handler) Fulfill(ctx context.Context, orders []models.OrderShipmentRecord) (*Result, error) {
	if len(orders) == 0 {
		return &Result{Summary: "No orders to process."}, nil
	}

	buckets := Fold(h.runInvoices(ctx, orders))
	combined, invoiceOnly := buckets.PrintQueues()

	if len(combined) == 0 && len(invoiceOnly) == 0 {
		return &Result{Summary: h.summarize(buckets, "No invoices could be generated; no document was produced.")}, nil
	}

	if len(combined) > 0 {
		doc, err := h.api.PrintInvoiceAndLabel(ctx, shipmentCodes(combined))
		if err != nil {
			h.logger.Error("bulk invoice+label fetch failed", map[string]interface{}{"error": err.Error()})
			return &Result{Summary: h.summarize(buckets, "Internal error while generating the invoice and label document.")}, nil
		}
		metrics.DocumentsAssembled.WithLabelValues("combined").Inc()
		return h.finish(ctx, buckets, doc, "Invoices and labels generated.")
	}

	invoiceDoc, err := h.api.ShowInvoices(ctx, invoiceCodes(invoiceOnly))
	if err != nil {
		h.logger.Error("bulk invoice fetch failed", map[string]interface{}{"error": err.Error()})
		return &Result{Summary: h.summarize(buckets, "Internal error while generating the invoice document.")}, nil
	}

	// Labels are attempted for every order in the original batch, not just
	// the invoice-only queue.
	labelOutcomes := h.runAllocations(ctx, orders)
	buckets = Fold(append(flatten(buckets), labelOutcomes...))

	allocated := buckets.LabelSuccess
	if len(allocated) == 0 {
		metrics.DocumentsAssembled.WithLabelValues("invoice_only").Inc()
		return h.finish(ctx, buckets, invoiceDoc, "Invoices generated; no labels could be allocated.")
	}

	labelDoc, err := h.api.ShowLabels(ctx, shipmentCodes(allocated))
	if err != nil {
		h.logger.Error("bulk label fetch failed", map[string]interface{}{"error": err.Error()})
		metrics.DocumentsAssembled.WithLabelValues("invoice_only").Inc()
		return h.finish(ctx, buckets, invoiceDoc, "Invoices generated; label generation failed.")
	}

	metrics.DocumentsAssembled.WithLabelValues("invoice_and_label").Inc()
	merged := append(append([]byte{}, invoiceDoc...), labelDoc...)
	return h.finish(ctx, buckets, merged, "Invoices and labels generated.")
}

// runInvoices issues the invoice-create calls with bounded fan-out. Each
// order writes only its own slot, so no lock is needed.
func (h *Handler) runInvoices(ctx context.Context, orders []models.OrderShipmentRecord) []Outcome {
	outs := make([]Outcome, len(orders))
	sem := make(chan struct{}, h.config.workers())
	var wg sync.WaitGroup
	for i, order := range orders {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, order models.OrderShipmentRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			outs[i] = h.invoiceOne(ctx, order)
		}(i, order)
	}
	wg.Wait()
	for _, o := range outs {
		metrics.FulfillmentOutcomes.WithLabelValues(string(o.Stage), string(o.Status)).Inc()
	}
	return outs
}

func (h *Handler) invoiceOne(ctx context.Context, order models.OrderShipmentRecord) Outcome {
	out := Outcome{SaleOrderNum: order.SaleOrderNum, Shipment: order.Shipment, Stage: StageInvoice}
	res, err := h.api.CreateInvoice(ctx, order.Shipment)
	if err != nil {
		out.Status = StatusFailed
		out.Detail = err.Error()
		return out
	}
	switch {
	case res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices:
		if res.Invoice == nil {
			out.Status = StatusFailed
			out.Detail = "invoice response was not valid JSON"
			return out
		}
		// successful=false with a populated invoice code is the idempotent
		// re-creation case and counts as success.
		if res.Invoice.Successful || res.Invoice.InvoiceCode != "" {
			out.Status = StatusSuccess
			out.InvoiceCode = res.Invoice.InvoiceCode
			out.LabelLink = res.Invoice.ShippingLabelLink
			return out
		}
		out.Status = StatusFailed
		out.Detail = res.Invoice.Message
	case res.StatusCode >= http.StatusBadRequest && res.StatusCode < http.StatusInternalServerError:
		out.Status = StatusFailed
		out.Detail = fmt.Sprintf("client error %d", res.StatusCode)
	default:
		out.Status = StatusFailed
		out.Detail = fmt.Sprintf("unexpected status %d", res.StatusCode)
	}
	return out
}

func (h *Handler) runAllocations(ctx context.Context, orders []models.OrderShipmentRecord) []Outcome {
	outs := make([]Outcome, len(orders))
	sem := make(chan struct{}, h.config.workers())
	var wg sync.WaitGroup
	for i, order := range orders {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, order models.OrderShipmentRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			outs[i] = h.allocateOne(ctx, order)
		}(i, order)
	}
	wg.Wait()
	for _, o := range outs {
		metrics.FulfillmentOutcomes.WithLabelValues(string(o.Stage), string(o.Status)).Inc()
	}
	return outs
}

func (h *Handler) allocateOne(ctx context.Context, order models.OrderShipmentRecord) Outcome {
	out := Outcome{SaleOrderNum: order.SaleOrderNum, Shipment: order.Shipment, Stage: StageLabel}
	res, err := h.api.AllocateProvider(ctx, order.Shipment)
	if err != nil {
		out.Status = StatusFailed
		out.Detail = err.Error()
		return out
	}
	switch {
	case res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices:
		if res.Allocation == nil {
			out.Status = StatusFailed
			out.Detail = "allocation response was not valid JSON"
			return out
		}
		if res.Allocation.Successful || res.Allocation.ShippingProviderCode != "" {
			out.Status = StatusSuccess
			return out
		}
		out.Status = StatusFailed
		out.Detail = res.Allocation.Message
	case res.StatusCode >= http.StatusBadRequest && res.StatusCode < http.StatusInternalServerError:
		out.Status = StatusFailed
		out.Detail = fmt.Sprintf("client error %d", res.StatusCode)
	default:
		out.Status = StatusFailed
		out.Detail = fmt.Sprintf("unexpected status %d", res.StatusCode)
	}
	return out
}

// finish uploads the assembled document when an uploader is wired and
// returns the run result. Upload failure keeps the document inline.
func (h *Handler) finish(ctx context.Context, buckets Buckets, doc []byte, headline string) (*Result, error) {
	summary := h.summarize(buckets, headline)
	if h.uploader != nil && len(doc) > 0 {
		key := fmt.Sprintf("documents/%s.pdf", uuid.NewString())
		link, err := h.uploader.UploadDocument(ctx, key, doc)
		if err != nil {
			h.logger.Warn("document upload failed", map[string]interface{}{"error": err.Error()})
		} else {
			summary += " Document: " + link
		}
	}
	return &Result{Summary: summary, Document: doc}, nil
}

func (h *Handler) summarize(buckets Buckets, headline string) string {
	var b strings.Builder
	b.WriteString(headline)
	fmt.Fprintf(&b, " Invoices: %d succeeded, %d failed.", len(buckets.InvoiceSuccess), len(buckets.InvoiceFailed))
	if len(buckets.LabelSuccess)+len(buckets.LabelFailed) > 0 {
		fmt.Fprintf(&b, " Labels: %d allocated, %d failed.", len(buckets.LabelSuccess), len(buckets.LabelFailed))
	}
	for _, o := range buckets.InvoiceFailed {
		fmt.Fprintf(&b, " Invoice failed for %s: %s.", o.Shipment, o.Detail)
	}
	for _, o := range buckets.LabelFailed {
		fmt.Fprintf(&b, " Label failed for %s: %s.", o.Shipment, o.Detail)
	}
	return b.String()
}

func shipmentCodes(outcomes []Outcome) []string {
	codes := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		codes = append(codes, o.Shipment)
	}
	return codes
}

func invoiceCodes(outcomes []Outcome) []string {
	codes := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		codes = append(codes, o.InvoiceCode)
	}
	return codes
}

func flatten(b Buckets) []Outcome {
	out := make([]Outcome, 0, len(b.InvoiceSuccess)+len(b.InvoiceFailed)+len(b.LabelSuccess)+len(b.LabelFailed))
	out = append(out, b.InvoiceSuccess...)
	out = append(out, b.InvoiceFailed...)
	out = append(out, b.LabelSuccess...)
	out = append(out, b.LabelFailed...)
	return out
}
