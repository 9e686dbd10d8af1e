// Package queue is the durable hand-off between webhook intake and the
// dispatch worker.
package queue

import (
	"context"
	"errors"
	"time"
)

var (
	ErrQueueNotFound  = errors.New("queue does not exist")
	ErrAccessDenied   = errors.New("queue access denied")
	ErrInvalidMessage = errors.New("invalid queue message")
)

// AttrOriginalMessageID is set on dead-lettered messages.
const AttrOriginalMessageID = "OriginalMessageId"

// Message is one received queue message.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
	Attributes    map[string]string
}

type SendInput struct {
	Body string
	// DeduplicationID and GroupID only apply to FIFO queues.
	DeduplicationID string
	GroupID         string
	Attributes      map[string]string
}

type ReceiveInput struct {
	MaxMessages       int32
	VisibilityTimeout time.Duration
	WaitTime          time.Duration
}

// Queue is implemented by SQSQueue.
type Queue interface {
	Send(ctx context.Context, in SendInput) (string, error)
	Receive(ctx context.Context, in ReceiveInput) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}
