package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/trackai/internal/circuitbreaker"
)

func TestMetrics_AvgLatency(t *testing.T) {
	assert.Zero(t, Metrics{}.AvgLatency())
	assert.Equal(t, 150*time.Millisecond, Metrics{SuccessCount: 2, TotalLatency: 300 * time.Millisecond}.AvgLatency())
}

func TestCloudWatchEmitter_Emit(t *testing.T) {
	var got *cloudwatch.PutMetricDataInput
	mock := &mockCloudWatchAPI{
		putMetricDataFunc: func(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
			got = params
			return &cloudwatch.PutMetricDataOutput{}, nil
		},
	}

	err := NewCloudWatchEmitter(mock, "").Emit(context.Background(), Metrics{
		SuccessCount:        4,
		FailureCount:        1,
		DLQCount:            1,
		TotalLatency:        400 * time.Millisecond,
		CircuitBreakerState: circuitbreaker.StateOpen,
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultNamespace, aws.ToString(got.Namespace))

	values := map[string]float64{}
	for _, d := range got.MetricData {
		values[aws.ToString(d.MetricName)] = aws.ToFloat64(d.Value)
	}
	assert.Equal(t, map[string]float64{
		"DispatchSuccess":     4,
		"DispatchFailure":     1,
		"DispatchDLQ":         1,
		"CircuitBreakerState": 2,
		"AvgLatency":          100,
	}, values)
}

func TestCloudWatchEmitter_Error(t *testing.T) {
	boom := errors.New("throttled")
	mock := &mockCloudWatchAPI{
		putMetricDataFunc: func(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
			return nil, boom
		},
	}

	err := NewCloudWatchEmitter(mock, "custom").Emit(context.Background(), Metrics{})
	assert.ErrorIs(t, err, boom)
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, 0.0, stateValue(circuitbreaker.StateClosed))
	assert.Equal(t, 1.0, stateValue(circuitbreaker.StateHalfOpen))
	assert.Equal(t, 2.0, stateValue(circuitbreaker.StateOpen))
}
