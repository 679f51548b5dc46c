// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSClient struct {
	client *sns.Client
	topic  string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), topic: topicARN}, nil
}

// PublishRunSummary publishes a fulfillment run summary to the configured
// topic.
func (s *SNSClient) PublishRunSummary(ctx context.Context, subject, summary string) error {
	if s.topic == "" {
		return fmt.Errorf("no topic configured")
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topic),
		Subject:  aws.String(subject),
		Message:  aws.String(summary),
	})
	if err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}
	return nil
}
