package enqueue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
	"github.com/saturnino-fabrica-de-software/trackai/internal/queue"
)

type MockConversionRepository struct {
	mock.Mock
}

func (m *MockConversionRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Conversion, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversion), args.Error(1)
}

func (m *MockConversionRepository) SetRequestPayload(ctx context.Context, tenantID, id uuid.UUID, payload json.RawMessage) error {
	args := m.Called(ctx, tenantID, id, payload)
	return args.Error(0)
}

func (m *MockConversionRepository) Stats(ctx context.Context, tenantID uuid.UUID) (*domain.EnqueueStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnqueueStats), args.Error(1)
}

func (m *MockConversionRepository) ListUnsent(ctx context.Context, before time.Time, limit int) ([]domain.PendingConversion, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingConversion), args.Error(1)
}

type fakeQueue struct {
	mu   sync.Mutex
	sent []queue.SendInput
	err  error
}

func (q *fakeQueue) Send(ctx context.Context, in queue.SendInput) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.sent = append(q.sent, in)
	return "msg-" + in.DeduplicationID, nil
}

func (q *fakeQueue) Receive(ctx context.Context, in queue.ReceiveInput) ([]queue.Message, error) {
	return nil, nil
}

func (q *fakeQueue) Delete(ctx context.Context, receiptHandle string) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func conversion(tenantID uuid.UUID, eventID string) *domain.Conversion {
	return &domain.Conversion{
		ID:       uuid.New(),
		TenantID: tenantID,
		HashedConversion: domain.HashedConversion{
			Gateway:        domain.GatewayStripe,
			GatewayEventID: eventID,
			Currency:       "USD",
		},
		CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_Enqueue(t *testing.T) {
	tenantID := uuid.New()
	conv := conversion(tenantID, "evt_1")

	repo := new(MockConversionRepository)
	q := &fakeQueue{}
	repo.On("GetByID", mock.Anything, tenantID, conv.ID).Return(conv, nil)
	repo.On("SetRequestPayload", mock.Anything, tenantID, conv.ID, mock.AnythingOfType("json.RawMessage")).Return(nil)

	res := NewService(repo, q, testLogger()).Enqueue(context.Background(), tenantID, conv.ID)

	assert.Equal(t, StatusEnqueued, res.Status)
	assert.Equal(t, "msg-evt_1", res.MessageID)
	assert.Empty(t, res.Error)
	assert.False(t, res.EnqueuedAt.IsZero())

	require.Len(t, q.sent, 1)
	assert.Equal(t, "evt_1", q.sent[0].DeduplicationID)
	assert.Equal(t, tenantID.String(), q.sent[0].GroupID)

	decoded, err := queue.DecodeConversionMessage(q.sent[0].Body)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, decoded.ConversionID)
	assert.Equal(t, domain.GatewayStripe, decoded.Conversion.Gateway)

	repo.AssertExpectations(t)
}

func TestService_Enqueue_FailuresAreNonFatal(t *testing.T) {
	tenantID := uuid.New()
	conv := conversion(tenantID, "evt_2")

	tests := []struct {
		name     string
		setup    func(*MockConversionRepository, *fakeQueue)
		wantSent int
	}{
		{
			name: "conversion missing",
			setup: func(repo *MockConversionRepository, q *fakeQueue) {
				repo.On("GetByID", mock.Anything, tenantID, conv.ID).Return(nil, domain.ErrConversionNotFound)
			},
		},
		{
			name: "queue unavailable",
			setup: func(repo *MockConversionRepository, q *fakeQueue) {
				repo.On("GetByID", mock.Anything, tenantID, conv.ID).Return(conv, nil)
				q.err = queue.ErrQueueNotFound
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockConversionRepository)
			q := &fakeQueue{}
			tt.setup(repo, q)

			res := NewService(repo, q, testLogger()).Enqueue(context.Background(), tenantID, conv.ID)

			assert.Equal(t, StatusFailed, res.Status)
			assert.NotEmpty(t, res.Error)
			assert.Empty(t, res.MessageID)
			assert.Len(t, q.sent, tt.wantSent)
			repo.AssertNotCalled(t, "SetRequestPayload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestService_Enqueue_AuditCopyFailureStillEnqueued(t *testing.T) {
	tenantID := uuid.New()
	conv := conversion(tenantID, "evt_3")

	repo := new(MockConversionRepository)
	repo.On("GetByID", mock.Anything, tenantID, conv.ID).Return(conv, nil)
	repo.On("SetRequestPayload", mock.Anything, tenantID, conv.ID, mock.Anything).Return(errors.New("db down"))

	res := NewService(repo, &fakeQueue{}, testLogger()).Enqueue(context.Background(), tenantID, conv.ID)
	assert.Equal(t, StatusEnqueued, res.Status)
}

func TestService_EnqueueBatch(t *testing.T) {
	tenantID := uuid.New()
	ok := conversion(tenantID, "evt_a")
	missing := uuid.New()

	repo := new(MockConversionRepository)
	repo.On("GetByID", mock.Anything, tenantID, ok.ID).Return(ok, nil)
	repo.On("GetByID", mock.Anything, tenantID, missing).Return(nil, domain.ErrConversionNotFound)
	repo.On("SetRequestPayload", mock.Anything, tenantID, ok.ID, mock.Anything).Return(nil)

	results := NewService(repo, &fakeQueue{}, testLogger()).EnqueueBatch(context.Background(), []Request{
		{TenantID: tenantID, ConversionID: missing},
		{TenantID: tenantID, ConversionID: ok.ID},
	})

	require.Len(t, results, 2)
	assert.Equal(t, missing, results[0].ConversionID)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, ok.ID, results[1].ConversionID)
	assert.Equal(t, StatusEnqueued, results[1].Status)
}

func TestService_Stats(t *testing.T) {
	tenantID := uuid.New()
	want := &domain.EnqueueStats{Total: 4, SentToCAPI: 3, Pending: 1, SuccessRate: 75}

	repo := new(MockConversionRepository)
	repo.On("Stats", mock.Anything, tenantID).Return(want, nil)

	got, err := NewService(repo, &fakeQueue{}, testLogger()).Stats(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestService_Sweep(t *testing.T) {
	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.New()
	ok := conversion(tenantID, "evt_s1")
	gone := uuid.New()

	repo := new(MockConversionRepository)
	repo.On("ListUnsent", mock.Anything, now.Add(-15*time.Minute), 50).Return([]domain.PendingConversion{
		{TenantID: tenantID, ID: ok.ID},
		{TenantID: tenantID, ID: gone},
	}, nil)
	repo.On("GetByID", mock.Anything, tenantID, ok.ID).Return(ok, nil)
	repo.On("GetByID", mock.Anything, tenantID, gone).Return(nil, domain.ErrConversionNotFound)
	repo.On("SetRequestPayload", mock.Anything, tenantID, ok.ID, mock.Anything).Return(nil)

	q := &fakeQueue{}
	svc := NewService(repo, q, testLogger())
	svc.now = func() time.Time { return now }

	results, err := svc.Sweep(context.Background(), 15*time.Minute, 50)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StatusEnqueued, results[0].Status)
	assert.Equal(t, StatusFailed, results[1].Status)
	assert.Len(t, q.sent, 1)
	repo.AssertExpectations(t)
}

func TestService_Sweep_NothingPending(t *testing.T) {
	repo := new(MockConversionRepository)
	repo.On("ListUnsent", mock.Anything, mock.Anything, 50).Return([]domain.PendingConversion{}, nil)

	results, err := NewService(repo, &fakeQueue{}, testLogger()).Sweep(context.Background(), time.Minute, 50)
	require.NoError(t, err)
	assert.Empty(t, results)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Sweep_ListError(t *testing.T) {
	repo := new(MockConversionRepository)
	repo.On("ListUnsent", mock.Anything, mock.Anything, 50).Return(nil, errors.New("db down"))

	_, err := NewService(repo, &fakeQueue{}, testLogger()).Sweep(context.Background(), time.Minute, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep unsent conversions")
}
