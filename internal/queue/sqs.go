package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

const (
	errCodeNonExistentQueue = "AWS.SimpleQueueService.NonExistentQueue"
	errCodeQueueNotExist    = "QueueDoesNotExist"
	errCodeAccessDenied     = "AccessDenied"
	errCodeAccessDeniedEx   = "AccessDeniedException"
)

// SQSAPI is the part of *sqs.Client the queue uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue is a Queue backed by an SQS FIFO queue.
type SQSQueue struct {
	client SQSAPI
	url    string
	fifo   bool
}

// NewSQSQueue binds client to one queue URL.
func NewSQSQueue(client SQSAPI, url string) *SQSQueue {
	return &SQSQueue{
		client: client,
		url:    url,
		fifo:   strings.HasSuffix(url, ".fifo"),
	}
}

func (q *SQSQueue) URL() string {
	return q.url
}

// Send publishes one message and returns its SQS message id.
func (q *SQSQueue) Send(ctx context.Context, in SendInput) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(in.Body),
	}

	if q.fifo {
		if in.DeduplicationID != "" {
			input.MessageDeduplicationId = aws.String(in.DeduplicationID)
		}
		if in.GroupID != "" {
			input.MessageGroupId = aws.String(in.GroupID)
		}
	}

	if len(in.Attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(in.Attributes))
		for k, v := range in.Attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	out, err := q.client.SendMessage(ctx, input)
	if err != nil {
		return "", classify("send message", err)
	}

	return aws.ToString(out.MessageId), nil
}

func (q *SQSQueue) Receive(ctx context.Context, in ReceiveInput) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(q.url),
		MaxNumberOfMessages:   in.MaxMessages,
		VisibilityTimeout:     int32(in.VisibilityTimeout.Seconds()),
		WaitTimeSeconds:       int32(in.WaitTime.Seconds()),
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return nil, classify("receive messages", err)
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msg := Message{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
		}
		if len(m.MessageAttributes) > 0 {
			msg.Attributes = make(map[string]string, len(m.MessageAttributes))
			for k, v := range m.MessageAttributes {
				msg.Attributes[k] = aws.ToString(v.StringValue)
			}
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return classify("delete message", err)
	}
	return nil
}

func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeNonExistentQueue, errCodeQueueNotExist:
			return fmt.Errorf("%s: %w", op, ErrQueueNotFound)
		case errCodeAccessDenied, errCodeAccessDeniedEx:
			return fmt.Errorf("%s: %w", op, ErrAccessDenied)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
