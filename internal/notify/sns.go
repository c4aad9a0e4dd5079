package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/jrzesz33/rez_deploy/internal/models"
)

// SNSAPI is the slice of the SNS client the notifier uses
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier announces deployment outcomes on an SNS topic
type SNSNotifier struct {
	client   SNSAPI
	topicArn string
	logger   *slog.Logger
}

// NewSNSNotifier creates a new SNS notifier instance
func NewSNSNotifier(client SNSAPI, topicArn string, logger *slog.Logger) *SNSNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &SNSNotifier{
		client:   client,
		topicArn: topicArn,
		logger:   logger,
	}
}

// Publish publishes a deployment record to the topic
func (s *SNSNotifier) Publish(ctx context.Context, record *models.DeploymentRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment record to JSON: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicArn),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"action": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Action.String()),
			},
			"outcome": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.Outcome.String()),
			},
			"function_name": {
				DataType:    aws.String("String"),
				StringValue: aws.String(record.FunctionName),
			},
		},
	}

	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish deployment notification: %w", err)
	}

	s.logger.InfoContext(ctx, "deployment notification published",
		slog.String("deployment_id", record.ID),
		slog.String("sns_message_id", aws.ToString(result.MessageId)),
		slog.String("topic_arn", s.topicArn),
	)

	return nil
}
