package consumer

import (
	"context"
	"fmt"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/payflow-labs/payflow/internal/events"
)

// SQSLambdaHandler wraps a Handler into the push-style delivery model:
// returning an error makes the Lambda runtime redeliver the batch, which
// is the push-mode equivalent of Retry.
func SQSLambdaHandler(h Handler, logger *zap.Logger) func(ctx context.Context, ev lambdaevents.SQSEvent) error {
	return func(ctx context.Context, ev lambdaevents.SQSEvent) error {
		for _, rec := range ev.Records {
			decoded, err := events.Decode([]byte(rec.Body), lambdaAttributeMap(rec.MessageAttributes))
			if err != nil {
				logger.Error("dropping undecodable message", zap.Error(err), zap.String("body", rec.Body))
				continue
			}
			if decoded.Type == events.TypeUnknown {
				logger.Warn("dropping message of unknown event type", zap.String("body", rec.Body))
				continue
			}
			if h.Handle(ctx, decoded) == Retry {
				return fmt.Errorf("handler requested retry for message %s", rec.MessageId)
			}
		}
		return nil
	}
}

func lambdaAttributeMap(attrs map[string]lambdaevents.SQSMessageAttribute) map[string]string {
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
