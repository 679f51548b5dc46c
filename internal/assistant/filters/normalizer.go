// Package filters normalizes user/model-authored filter entries into the
// provider-exact query structures the order-management API expects.
package filters

import (
	"time"

	stderrors "fulfillment-assistant/internal/common/errors"
	"fulfillment-assistant/internal/models"
)

// Filter key vocabulary.
const (
	KeyOrderCode      = "orderCodeFilter"
	KeyChannel        = "channelFilter"
	KeyCreatedDate    = "createdDateFilter"
	KeyFulfillmentTAT = "fulfillmentTATFilter"
	KeyOrderStatus    = "orderStatusFilter"
	KeyPicklistCode   = "picklistCodeFilter"
)

// Provider-side filter identifiers.
const (
	IDSaleOrderCodes     = "saleOrderCodes"
	IDChannel            = "channelFilter"
	IDCreatedDateRange   = "createdDateRangeFilter"
	IDFulfillmentTat     = "fulfillmentTatDateRangeFilter"
	IDStatus             = "statusFilter"
	datePattern          = "dd-MM-yyyy"
	dateLayout           = "02-01-2006"
	timestampLayout      = "2006-01-02T15:04:05.000Z"
)

// DateRange is a half-open day window in UTC with millisecond precision.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Normalized is one provider-shaped filter. Exactly one of the optional
// fields is populated depending on ID.
type Normalized struct {
	ID             string     `json:"id"`
	SaleOrderCodes []string   `json:"saleOrderCodes,omitempty"`
	SelectedValues []string   `json:"selectedValues,omitempty"`
	DateRange      *DateRange `json:"dateRange,omitempty"`
}

// Normalize converts an ordered filter list into provider filters. It is pure
// and deterministic; the only failure mode is a malformed date token.
//
// For Picklist the conversion is the identity: entries pass through keyed as
// given (picklist codes are resolved one by one via PicklistCodes, not via
// the normalized output). For SaleOrder an order-code filter wins over
// everything else, since an order code is a sufficient unique identifier.
func Normalize(entity models.Entity, entries []models.FilterEntry) ([]Normalized, error) {
	if entity == models.EntityPicklist {
		out := make([]Normalized, 0, len(entries))
		for _, e := range entries {
			if len(e.SelectedValues) == 0 {
				continue
			}
			out = append(out, Normalized{ID: e.Key, SelectedValues: e.SelectedValues})
		}
		return out, nil
	}

	// An order code is a sufficient unique identifier, so it wins no matter
	// where it appears in the list.
	for _, e := range entries {
		if e.Key == KeyOrderCode && len(e.SelectedValues) > 0 {
			return []Normalized{{ID: IDSaleOrderCodes, SaleOrderCodes: e.SelectedValues}}, nil
		}
	}

	var out []Normalized
	for _, e := range entries {
		if len(e.SelectedValues) == 0 {
			continue
		}

		switch e.Key {
		case KeyCreatedDate:
			rng, err := ExpandDay(e.SelectedValues[0])
			if err != nil {
				return nil, err
			}
			out = append(out, Normalized{ID: IDCreatedDateRange, DateRange: &rng})

		case KeyFulfillmentTAT:
			rng, err := ExpandDay(e.SelectedValues[0])
			if err != nil {
				return nil, err
			}
			out = append(out, Normalized{ID: IDFulfillmentTat, DateRange: &rng})

		case KeyChannel:
			// Values are already numeric channel ids; name resolution is the
			// model's responsibility.
			out = append(out, Normalized{ID: IDChannel, SelectedValues: e.SelectedValues})

		case KeyOrderStatus:
			// Status is the last meaningful key in priority order.
			out = append(out, Normalized{ID: IDStatus, SelectedValues: e.SelectedValues})
			return out, nil
		}
	}

	return out, nil
}

// PicklistCodes extracts the picklist-code set from a raw filter list.
func PicklistCodes(entries []models.FilterEntry) []string {
	var codes []string
	for _, e := range entries {
		if e.Key == KeyPicklistCode && len(e.SelectedValues) > 0 {
			codes = e.SelectedValues
		}
	}
	return codes
}

// ExpandDay turns a dd-MM-yyyy token into a range from the previous day at
// 00:00:00.000 to the given day at 23:59:59.999, both UTC. The extra day at
// the start absorbs timezone skew between the user's day and the backend's
// stored UTC timestamps.
func ExpandDay(input string) (DateRange, error) {
	day, err := time.ParseInLocation(dateLayout, input, time.UTC)
	if err != nil {
		return DateRange{}, stderrors.NewInvalidDateFormatError(input, datePattern)
	}

	start := day.AddDate(0, 0, -1)
	end := day.Add(24*time.Hour - time.Millisecond)

	return DateRange{
		Start: start.Format(timestampLayout),
		End:   end.Format(timestampLayout),
	}, nil
}
