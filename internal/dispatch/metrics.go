package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/saturnino-fabrica-de-software/trackai/internal/circuitbreaker"
)

const DefaultNamespace = "Track-AI/CAPI"

// Metrics are running totals since the worker started.
type Metrics struct {
	SuccessCount        int64
	FailureCount        int64
	DLQCount            int64
	TotalLatency        time.Duration
	CircuitBreakerState circuitbreaker.State
}

// AvgLatency is averaged over successful dispatches only.
func (m Metrics) AvgLatency() time.Duration {
	if m.SuccessCount == 0 {
		return 0
	}
	return m.TotalLatency / time.Duration(m.SuccessCount)
}

// MetricsSink receives a snapshot after every processed message.
type MetricsSink interface {
	Emit(ctx context.Context, m Metrics) error
}

// CloudWatchAPI is the part of *cloudwatch.Client the emitter uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchEmitter publishes worker metrics to CloudWatch.
type CloudWatchEmitter struct {
	api       CloudWatchAPI
	namespace string
}

// NewCloudWatchEmitter uses DefaultNamespace when namespace is empty.
func NewCloudWatchEmitter(api CloudWatchAPI, namespace string) *CloudWatchEmitter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatchEmitter{api: api, namespace: namespace}
}

func (e *CloudWatchEmitter) Emit(ctx context.Context, m Metrics) error {
	_, err := e.api.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(e.namespace),
		MetricData: []types.MetricDatum{
			datum("DispatchSuccess", float64(m.SuccessCount), types.StandardUnitCount),
			datum("DispatchFailure", float64(m.FailureCount), types.StandardUnitCount),
			datum("DispatchDLQ", float64(m.DLQCount), types.StandardUnitCount),
			datum("CircuitBreakerState", stateValue(m.CircuitBreakerState), types.StandardUnitNone),
			datum("AvgLatency", float64(m.AvgLatency().Milliseconds()), types.StandardUnitMilliseconds),
		},
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func datum(name string, value float64, unit types.StandardUnit) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
	}
}

// 0 closed, 1 half-open, 2 open. Alarms fire on > 0.
func stateValue(s circuitbreaker.State) float64 {
	switch s {
	case circuitbreaker.StateHalfOpen:
		return 1
	case circuitbreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
