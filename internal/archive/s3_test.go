package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

type mockS3API struct {
	putObjectFunc func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3API) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, params, optFns...)
	}
	return &s3.PutObjectOutput{}, nil
}

func sampleRaw() *domain.WebhookRaw {
	return &domain.WebhookRaw{
		ID:             uuid.MustParse("7b1c9e1e-4a8b-4c61-9f4e-3f5d2c1a0b9e"),
		TenantID:       uuid.MustParse("0f8c3b0a-1d2e-4f5a-8b6c-7d8e9f0a1b2c"),
		Gateway:        domain.GatewayKiwify,
		GatewayEventID: "order-42",
		Payload:        json.RawMessage(`{"order_id":"order-42"}`),
		ReceivedAt:     time.Date(2026, 3, 7, 23, 59, 0, 0, time.FixedZone("BRT", -3*3600)),
	}
}

func TestS3Archiver_Key(t *testing.T) {
	a := NewS3Archiver(&mockS3API{}, "bucket", "prod/")

	// 23:59 BRT is already the next day in UTC
	assert.Equal(t,
		"prod/webhooks/0f8c3b0a-1d2e-4f5a-8b6c-7d8e9f0a1b2c/kiwify/2026/03/08/7b1c9e1e-4a8b-4c61-9f4e-3f5d2c1a0b9e.json",
		a.Key(sampleRaw()),
	)
}

func TestS3Archiver_Store(t *testing.T) {
	var got *s3.PutObjectInput
	api := &mockS3API{
		putObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			got = params
			return &s3.PutObjectOutput{}, nil
		},
	}
	a := NewS3Archiver(api, "trackai-webhooks", "")

	require.NoError(t, a.Store(context.Background(), sampleRaw()))
	require.NotNil(t, got)

	assert.Equal(t, "trackai-webhooks", aws.ToString(got.Bucket))
	assert.Equal(t, "application/json", aws.ToString(got.ContentType))
	assert.Equal(t, types.ServerSideEncryptionAes256, got.ServerSideEncryption)
	assert.Equal(t, "order-42", got.Metadata["event-id"])

	body, err := io.ReadAll(got.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"order-42"}`, string(body))
}

func TestS3Archiver_Store_Errors(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		raw := sampleRaw()
		raw.ID = uuid.Nil
		err := NewS3Archiver(&mockS3API{}, "b", "").Store(context.Background(), raw)
		assert.Error(t, err)
	})

	t.Run("no such bucket", func(t *testing.T) {
		api := &mockS3API{
			putObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "gone"}
			},
		}
		err := NewS3Archiver(api, "b", "").Store(context.Background(), sampleRaw())
		assert.ErrorIs(t, err, ErrBucketNotFound)
	})

	t.Run("other api error", func(t *testing.T) {
		api := &mockS3API{
			putObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
			},
		}
		err := NewS3Archiver(api, "b", "").Store(context.Background(), sampleRaw())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AccessDenied")
	})

	t.Run("transport error", func(t *testing.T) {
		api := &mockS3API{
			putObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
				return nil, errors.New("dial tcp: timeout")
			},
		}
		err := NewS3Archiver(api, "b", "").Store(context.Background(), sampleRaw())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "put object")
	})
}
