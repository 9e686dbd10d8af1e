// Package archive keeps a copy of every first-seen webhook body in S3 so a
// delivery can be replayed after the database row has been pruned.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/trackai/internal/domain"
)

var ErrBucketNotFound = errors.New("archive bucket not found")

// PutObjectAPI is the part of *s3.Client the archiver uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes raw webhook bodies to S3.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver creates a new S3 archiver
func NewS3Archiver(client PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Key layout: <prefix>webhooks/<tenant>/<gateway>/<yyyy>/<mm>/<dd>/<raw id>.json
func (a *S3Archiver) Key(raw *domain.WebhookRaw) string {
	at := raw.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()
	return fmt.Sprintf("%swebhooks/%s/%s/%04d/%02d/%02d/%s.json",
		a.prefix, raw.TenantID, raw.Gateway, at.Year(), at.Month(), at.Day(), raw.ID)
}

// Store writes the raw body. Objects are keyed by the stored row id, so a
// retried upload overwrites the same object.
func (a *S3Archiver) Store(ctx context.Context, raw *domain.WebhookRaw) error {
	if raw.ID == uuid.Nil {
		return errors.New("archive: webhook has no id")
	}

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(raw)),
		Body:        bytes.NewReader(raw.Payload),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"gateway":  raw.Gateway.String(),
			"event-id": raw.GatewayEventID,
		},
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return translateError(err)
	}
	return nil
}

func translateError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s", ErrBucketNotFound, apiErr.ErrorMessage())
		}
		return fmt.Errorf("s3 %s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("put object: %w", err)
}
