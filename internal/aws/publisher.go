package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// Publisher serializes domain events and publishes them to an SNS topic.
// The event type rides both as the Subject and as an "eventType" message
// attribute so SQS subscribers can dispatch without parsing the payload.
type Publisher struct {
	SNS      SNSAPI
	TopicARN string
	Logger   *zap.Logger
	Metrics  *Metrics // optional
}

// NewPublisher returns a Publisher bound to a topic ARN.
func NewPublisher(snsClient SNSAPI, topicARN string, logger *zap.Logger) *Publisher {
	return &Publisher{
		SNS:      snsClient,
		TopicARN: topicARN,
		Logger:   logger,
	}
}

// Publish sends one event. Serialization and transport failures are both
// returned; the caller decides whether a missed publish blocks its
// operation. PublishLogged is the fire-and-forget variant.
func (p *Publisher) Publish(ctx context.Context, eventType string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.Logger.Error("failed to serialize event", zap.String("event_type", eventType), zap.Error(err))
		p.countFailure(ctx, eventType)
		return fmt.Errorf("serialize %s: %w", eventType, err)
	}

	input := &sns.PublishInput{
		TopicArn: &p.TopicARN,
		Message:  awsString(string(body)),
		Subject:  &eventType,
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {
				DataType:    awsString("String"),
				StringValue: &eventType,
			},
		},
	}

	out, err := p.SNS.Publish(ctx, input)
	if err != nil {
		p.Logger.Error("failed to publish event", zap.String("event_type", eventType), zap.Error(err))
		p.countFailure(ctx, eventType)
		return fmt.Errorf("publish %s: %w", eventType, err)
	}

	msgID := ""
	if out.MessageId != nil {
		msgID = *out.MessageId
	}
	p.Logger.Info("published event", zap.String("event_type", eventType), zap.String("message_id", msgID))
	return nil
}

// PublishLogged publishes and swallows any failure. Payment-result events
// are published after the state transition is committed; a missed publish
// must not unwind it.
func (p *Publisher) PublishLogged(ctx context.Context, eventType string, event interface{}) {
	_ = p.Publish(ctx, eventType, event)
}

func (p *Publisher) countFailure(ctx context.Context, eventType string) {
	if p.Metrics != nil {
		p.Metrics.CountPublishFailure(ctx, eventType)
	}
}

// awsString helper
func awsString(s string) *string { return &s }
