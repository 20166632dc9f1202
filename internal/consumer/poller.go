package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/aws"
	"github.com/payflow-labs/payflow/internal/events"
)

// Poller is the pull-style delivery model: a periodic long-poll loop that
// receives, dispatches and deletes only acked messages. Redelivery of
// retried messages rides on the queue's visibility timeout.
type Poller struct {
	SQS               aws.SQSAPI
	QueueURL          string
	Handler           Handler
	Logger            *zap.Logger
	Interval          time.Duration
	VisibilityTimeout int32
	MaxMessages       int32
	WaitTimeSeconds   int32
}

// NewPoller returns a Poller with sane defaults for batch size and
// long-poll wait.
func NewPoller(sqsClient aws.SQSAPI, queueURL string, h Handler, logger *zap.Logger, interval time.Duration, visibilityTimeout int32) *Poller {
	return &Poller{
		SQS:               sqsClient,
		QueueURL:          queueURL,
		Handler:           h,
		Logger:            logger,
		Interval:          interval,
		VisibilityTimeout: visibilityTimeout,
		MaxMessages:       5,
		WaitTimeSeconds:   20,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				p.Logger.Warn("poll failed", zap.Error(err))
			}
		}
	}
}

// PollOnce receives one batch and processes it. A receive error is
// returned; per-message handling never aborts the batch.
func (p *Poller) PollOnce(ctx context.Context) error {
	out, err := p.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              &p.QueueURL,
		MaxNumberOfMessages:   p.MaxMessages,
		WaitTimeSeconds:       p.WaitTimeSeconds,
		VisibilityTimeout:     p.VisibilityTimeout,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return err
	}

	for _, m := range out.Messages {
		if p.process(ctx, m) == Ack {
			_, err := p.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &p.QueueURL,
				ReceiptHandle: m.ReceiptHandle,
			})
			if err != nil {
				// Delete failure means a redelivery of an already-applied
				// message; the conditional writes absorb it.
				p.Logger.Warn("failed to delete message", zap.Error(err))
			}
		}
	}
	return nil
}

func (p *Poller) process(ctx context.Context, m sqstypes.Message) Result {
	body := ""
	if m.Body != nil {
		body = *m.Body
	}

	decoded, err := events.Decode([]byte(body), attributeMap(m.MessageAttributes))
	if err != nil {
		// Malformed payload will never parse on redelivery either.
		p.Logger.Error("dropping undecodable message", zap.Error(err), zap.String("body", body))
		return Ack
	}
	if decoded.Type == events.TypeUnknown {
		p.Logger.Warn("dropping message of unknown event type", zap.String("body", body))
		return Ack
	}
	return p.Handler.Handle(ctx, decoded)
}

func attributeMap(attrs map[string]sqstypes.MessageAttributeValue) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v.StringValue != nil {
			out[k] = *v.StringValue
		}
	}
	return out
}
