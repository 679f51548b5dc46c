package filters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "fulfillment-assistant/internal/common/errors"
	"fulfillment-assistant/internal/models"
)

func TestNormalize_OrderCodeWinsOverEverything(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.FilterEntry
	}{
		{
			name: "order code first",
			entries: []models.FilterEntry{
				{Key: KeyOrderCode, SelectedValues: []string{"SO-1", "SO-2"}},
				{Key: KeyChannel, SelectedValues: []string{"7"}},
				{Key: KeyCreatedDate, SelectedValues: []string{"15-08-2026"}},
			},
		},
		{
			name: "order code after other filters",
			entries: []models.FilterEntry{
				{Key: KeyChannel, SelectedValues: []string{"7"}},
				{Key: KeyOrderStatus, SelectedValues: []string{"CREATED"}},
				{Key: KeyOrderCode, SelectedValues: []string{"SO-1", "SO-2"}},
			},
		},
		{
			name: "order code alone",
			entries: []models.FilterEntry{
				{Key: KeyOrderCode, SelectedValues: []string{"SO-1", "SO-2"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize(models.EntitySaleOrder, tt.entries)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, IDSaleOrderCodes, out[0].ID)
			assert.Equal(t, []string{"SO-1", "SO-2"}, out[0].SaleOrderCodes)
		})
	}
}

func TestNormalize_StatusTerminatesNonCodeFilters(t *testing.T) {
	// Status terminates iteration, so a channel filter after it never applies.
	out, err := Normalize(models.EntitySaleOrder, []models.FilterEntry{
		{Key: KeyChannel, SelectedValues: []string{"7"}},
		{Key: KeyOrderStatus, SelectedValues: []string{"CREATED"}},
		{Key: KeyChannel, SelectedValues: []string{"9"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, IDChannel, out[0].ID)
	assert.Equal(t, IDStatus, out[1].ID)
}

func TestNormalize_DateRangeExpansion(t *testing.T) {
	out, err := Normalize(models.EntitySaleOrder, []models.FilterEntry{
		{Key: KeyCreatedDate, SelectedValues: []string{"15-08-2026"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, IDCreatedDateRange, out[0].ID)
	require.NotNil(t, out[0].DateRange)
	assert.Equal(t, "2026-08-14T00:00:00.000Z", out[0].DateRange.Start)
	assert.Equal(t, "2026-08-15T23:59:59.999Z", out[0].DateRange.End)
}

func TestExpandDay_EndIsStartPlusFullWindow(t *testing.T) {
	for _, input := range []string{"01-01-2026", "29-02-2024", "31-12-2025"} {
		rng, err := ExpandDay(input)
		require.NoError(t, err)

		start, err := time.Parse("2006-01-02T15:04:05.000Z", rng.Start)
		require.NoError(t, err)
		end, err := time.Parse("2006-01-02T15:04:05.000Z", rng.End)
		require.NoError(t, err)

		want := start.Add(24*time.Hour + 24*time.Hour - time.Millisecond)
		assert.Equal(t, want, end, "input %s", input)
		assert.Equal(t, time.UTC, end.Location())
	}
}

func TestExpandDay_InvalidFormat(t *testing.T) {
	for _, input := range []string{"2026-08-15", "15/08/2026", "tomorrow", ""} {
		_, err := ExpandDay(input)
		require.Error(t, err, "input %q", input)
		assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeInvalidDateFormat))
	}
}

func TestNormalize_ChannelAndTATOrdering(t *testing.T) {
	out, err := Normalize(models.EntitySaleOrder, []models.FilterEntry{
		{Key: KeyChannel, SelectedValues: []string{"7", "9"}},
		{Key: KeyFulfillmentTAT, SelectedValues: []string{"01-09-2026"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, IDChannel, out[0].ID)
	assert.Equal(t, []string{"7", "9"}, out[0].SelectedValues)
	assert.Equal(t, IDFulfillmentTat, out[1].ID)
}

func TestNormalize_SkipsUnknownAndEmpty(t *testing.T) {
	out, err := Normalize(models.EntitySaleOrder, []models.FilterEntry{
		{Key: "warehouseFilter", SelectedValues: []string{"WH-1"}},
		{Key: KeyChannel, SelectedValues: nil},
		{Key: KeyChannel, SelectedValues: []string{"3"}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"3"}, out[0].SelectedValues)
}

func TestNormalize_EmptyInput(t *testing.T) {
	out, err := Normalize(models.EntitySaleOrder, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNormalize_PicklistIsIdentity(t *testing.T) {
	entries := []models.FilterEntry{
		{Key: KeyPicklistCode, SelectedValues: []string{"PK-1", "PK-2"}},
		{Key: KeyChannel, SelectedValues: []string{"7"}},
	}
	out, err := Normalize(models.EntityPicklist, entries)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, KeyPicklistCode, out[0].ID)
	assert.Equal(t, []string{"PK-1", "PK-2"}, out[0].SelectedValues)
}

func TestPicklistCodes(t *testing.T) {
	codes := PicklistCodes([]models.FilterEntry{
		{Key: KeyChannel, SelectedValues: []string{"7"}},
		{Key: KeyPicklistCode, SelectedValues: []string{"PK-9"}},
	})
	assert.Equal(t, []string{"PK-9"}, codes)

	assert.Nil(t, PicklistCodes(nil))
}
