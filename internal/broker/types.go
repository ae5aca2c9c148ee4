package broker

import (
	"context"
	"time"
)

// Message is a broker record independent of the client library.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Time      time.Time
}

type Producer interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

// HandlerFunc returning an error leaves the message uncommitted.
type HandlerFunc func(ctx context.Context, msg Message) error
