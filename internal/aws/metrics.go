package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const metricNamespace = "Payflow"

// Metrics emits operational counters to CloudWatch. Emission is best-effort:
// a metrics failure is logged and never surfaces to the caller.
type Metrics struct {
	client  CloudWatchAPI
	service string
	logger  *zap.Logger
}

// NewMetrics returns a Metrics emitter tagged with the emitting service name.
func NewMetrics(client CloudWatchAPI, service string, logger *zap.Logger) *Metrics {
	return &Metrics{client: client, service: service, logger: logger}
}

// CountPublishFailure records one failed event publish. This is the
// alertable signal for publishes that do not block the user-facing
// operation.
func (m *Metrics) CountPublishFailure(ctx context.Context, eventType string) {
	m.count(ctx, "EventPublishFailure", cwtypes.Dimension{
		Name:  awsString("EventType"),
		Value: &eventType,
	})
}

// CountWebhookRejected records one rejected gateway webhook (missing or
// invalid signature).
func (m *Metrics) CountWebhookRejected(ctx context.Context, reason string) {
	m.count(ctx, "WebhookRejected", cwtypes.Dimension{
		Name:  awsString("Reason"),
		Value: &reason,
	})
}

func (m *Metrics) count(ctx context.Context, name string, extra cwtypes.Dimension) {
	if m == nil || m.client == nil {
		return
	}
	one := 1.0
	now := time.Now().UTC()
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: awsString(metricNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &now,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("Service"), Value: &m.service},
					extra,
				},
			},
		},
	})
	if err != nil {
		m.logger.Warn("failed to put metric", zap.String("metric", name), zap.Error(err))
	}
}
