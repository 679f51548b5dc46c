// Package notify fans fulfillment summaries out to SNS and SES. Both
// channels are best-effort; delivery failure never affects the run.
package notify

import (
	"context"
	"fmt"

	commonaws "fulfillment-assistant/internal/common/aws"
	"fulfillment-assistant/internal/common/logger"
	"fulfillment-assistant/internal/common/reqctx"
)

type Notifier struct {
	sns    *commonaws.SNSClient
	ses    *commonaws.SESClient
	logger logger.Logger
}

// NewNotifier takes nil for channels that are not configured; those are
// skipped silently.
func NewNotifier(snsClient *commonaws.SNSClient, sesClient *commonaws.SESClient, log logger.Logger) *Notifier {
	return &Notifier{sns: snsClient, ses: sesClient, logger: log}
}

// FulfillmentCompleted publishes the run summary to the configured topic
// and, when a recipient is known, mails it to the operator.
func (n *Notifier) FulfillmentCompleted(ctx context.Context, orderCount int, summary string, recipient string) {
	id := reqctx.FromOrZero(ctx)
	subject := fmt.Sprintf("Fulfillment run for %s: %d orders", id.TenantCode, orderCount)

	if n.sns != nil {
		if err := n.sns.PublishRunSummary(ctx, subject, summary); err != nil {
			n.logger.Warn("sns publish failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if n.ses != nil && recipient != "" {
		if err := n.ses.MailRunSummary(ctx, recipient, subject, summary); err != nil {
			n.logger.Warn("ses send failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
