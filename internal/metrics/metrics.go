package metrics

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/alialfonick-commits/loru/internal/aws"
)

// Metric names emitted by the pipeline.
const (
	OrdersIngested     = "OrdersIngested"
	ItemsSucceeded     = "ItemsSucceeded"
	ItemsFailed        = "ItemsFailed"
	ItemsSkipped       = "ItemsSkipped"
	CallbacksMatched   = "CallbacksMatched"
	CallbacksUnmatched = "CallbacksUnmatched"
)

// Emitter publishes pipeline counters to CloudWatch. Best-effort: emit
// failures are logged and never surface to callers. A nil Emitter is valid
// and does nothing.
type Emitter struct {
	client    aws.CloudWatchAPI
	namespace string
}

func NewEmitter(client aws.CloudWatchAPI, namespace string) *Emitter {
	return &Emitter{client: client, namespace: namespace}
}

// Count adds value to the named counter.
func (e *Emitter) Count(ctx context.Context, name string, value float64) {
	if e == nil || e.client == nil {
		return
	}
	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: &e.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Value:      &value,
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	})
	if err != nil {
		log.Printf("[metrics] put %s: %v", name, err)
	}
}
