package dispatch

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/capi"
	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/queue"
)

type mockCloudWatchAPI struct {
	putMetricDataFunc func(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

func (m *mockCloudWatchAPI) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	if m.putMetricDataFunc != nil {
		return m.putMetricDataFunc(ctx, params, optFns...)
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	pending  []queue.Message
	sent     []queue.SendInput
	deleted  []string
	sendErr  error
	received int
}

func (q *fakeQueue) Send(ctx context.Context, in queue.SendInput) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.sendErr != nil {
		return "", q.sendErr
	}
	q.sent = append(q.sent, in)
	return "dlq-" + uuid.NewString(), nil
}

func (q *fakeQueue) Receive(ctx context.Context, in queue.ReceiveInput) ([]queue.Message, error) {
	q.mu.Lock()
	q.received++
	if len(q.pending) > 0 {
		msgs := q.pending
		q.pending = nil
		q.mu.Unlock()
		return msgs, nil
	}
	q.mu.Unlock()

	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, receiptHandle)
	return nil
}

func (q *fakeQueue) snapshot() (sent []queue.SendInput, deleted []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.SendInput(nil), q.sent...), append([]string(nil), q.deleted...)
}

type fakeConversions struct {
	mu     sync.Mutex
	convs  map[string]*domain.Conversion
	marked []uuid.UUID
}

func (f *fakeConversions) GetByEventKey(ctx context.Context, tenantID uuid.UUID, gateway domain.Gateway, eventID string) (*domain.Conversion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[eventID]
	if !ok {
		return nil, domain.ErrConversionNotFound
	}
	return c, nil
}

func (f *fakeConversions) MarkSent(ctx context.Context, tenantID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, id)
	return nil
}

type fakeTenants struct {
	pixel string
}

func (f *fakeTenants) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return &domain.Tenant{ID: id, PixelID: f.pixel, IsActive: true}, nil
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSender) BuildPayload(pixelID string, conv *domain.Conversion) *capi.EventPayload {
	return capi.BuildPayload(pixelID, conv)
}

func (f *fakeSender) ValidatePayload(p *capi.EventPayload) error {
	return capi.ValidatePayload(p)
}

func (f *fakeSender) SendEvent(ctx context.Context, tenantID, conversionID uuid.UUID, payload *capi.EventPayload) (*capi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &capi.Response{EventsReceived: 1}, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []domain.DispatchAttempt
}

func (f *fakeRecorder) Create(ctx context.Context, a *domain.DispatchAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, *a)
	return nil
}

func (f *fakeRecorder) all() []domain.DispatchAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DispatchAttempt(nil), f.attempts...)
}

type fakeSink struct {
	mu      sync.Mutex
	emitted []Metrics
	err     error
}

func (f *fakeSink) Emit(ctx context.Context, m Metrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, m)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emitted)
}
