package notify

import (
	"context"
	"testing"

	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/reqctx"
)

func TestFulfillmentCompletedSkipsUnconfiguredChannels(t *testing.T) {
	n := NewNotifier(nil, nil, logger.NewTestLogger(t))
	ctx := reqctx.With(context.Background(), reqctx.Identity{
		TenantCode: "acme", UserID: "u1", SessionID: "s1",
	})

	n.FulfillmentCompleted(ctx, 3, "Invoices: 3 succeeded, 0 failed.", "ops@example.com")
	n.FulfillmentCompleted(ctx, 0, "No orders to process.", "")
}
