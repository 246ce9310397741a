package common

import (
	"context"
	"time"
)

// Message is an inbound message delivered to a MessageHandler by the
// consumer, after translation from the underlying broker's wire format.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// MessageHandler processes a single inbound Message. A returned error
// triggers the consumer's retry-then-dead-letter policy.
type MessageHandler func(ctx context.Context, msg *Message) error

// ProducerMessage is an outbound message handed to Producer.Publish.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// BatchItemError records one failed message within a PublishBatch call.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarizes the outcome of a PublishBatch call.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}
