package fulfill

// Stage names the fulfillment step an outcome belongs to.
type Stage string

// Status is the terminal result of one order at one stage.
type Status string

const (
	StageInvoice Stage = "invoice"
	StageLabel   Stage = "label"

	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Outcome is the result of one order's attempt at one stage. Outcomes are
// produced independently per order and folded afterwards, so the per-order
// work needs no shared state.
type Outcome struct {
	SaleOrderNum string
	Shipment     string
	Stage        Stage
	Status       Status
	Detail       string

	// InvoiceCode and LabelLink are set on invoice success and route the
	// shipment to a print queue.
	InvoiceCode string
	LabelLink   string
}

// Buckets holds the four disjoint aggregation sets of one fulfillment run.
type Buckets struct {
	InvoiceSuccess []Outcome
	InvoiceFailed  []Outcome
	LabelSuccess   []Outcome
	LabelFailed    []Outcome
}

// Fold merges outcomes into the four buckets. Order of the input is
// irrelevant; only membership matters.
func Fold(outcomes []Outcome) Buckets {
	var b Buckets
	for _, o := range outcomes {
		switch {
		case o.Stage == StageInvoice && o.Status == StatusSuccess:
			b.InvoiceSuccess = append(b.InvoiceSuccess, o)
		case o.Stage == StageInvoice:
			b.InvoiceFailed = append(b.InvoiceFailed, o)
		case o.Status == StatusSuccess:
			b.LabelSuccess = append(b.LabelSuccess, o)
		default:
			b.LabelFailed = append(b.LabelFailed, o)
		}
	}
	return b
}

// PrintQueues splits invoice successes by whether the invoice response
// carried a shipping-label link.
func (b Buckets) PrintQueues() (combined, invoiceOnly []Outcome) {
	for _, o := range b.InvoiceSuccess {
		if o.LabelLink != "" {
			combined = append(combined, o)
		} else {
			invoiceOnly = append(invoiceOnly, o)
		}
	}
	return combined, invoiceOnly
}
