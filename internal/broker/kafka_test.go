package broker

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		m := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func newTestConsumer(reader *fakeReader) *KafkaConsumer {
	c := NewKafkaConsumer(config.KafkaConfig{
		Brokers: []string{"localhost:9092"},
		GroupID: "test",
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			Multiplier:      2,
		},
	}, logger.NopLogger())
	c.newReader = func(string) messageReader { return reader }
	return c
}

func TestConsumeCommitsHandledMessages(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Topic: "in", Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "k", Value: []byte("v")}}},
		{Topic: "in", Offset: 2, Value: []byte("b")},
	}}
	c := newTestConsumer(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []string
	err := c.Consume(ctx, "in", func(_ context.Context, msg Message) error {
		seen = append(seen, string(msg.Value))
		if msg.Offset == 1 {
			assert.Equal(t, "v", msg.Headers["k"])
		}
		if len(seen) == 2 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, reader.committed)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumeLeavesFailedMessageUncommitted(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		{Topic: "in", Offset: 7, Value: []byte("a")},
		{Topic: "in", Offset: 8, Value: []byte("b")},
	}}
	c := newTestConsumer(reader)

	calls := 0
	err := c.Consume(context.Background(), "in", func(context.Context, Message) error {
		calls++
		return stderrors.New("downstream unavailable")
	})
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.Empty(t, reader.committed)
}

func TestConsumeRecoversHandlerPanic(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Topic: "in", Offset: 1}}}
	c := newTestConsumer(reader)

	calls := 0
	err := c.Consume(context.Background(), "in", func(context.Context, Message) error {
		calls++
		panic("nil map")
	})
	require.Error(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, errors.IsProcessing(err))
	assert.Empty(t, reader.committed)
}

func TestFactoryRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, logger.NopLogger())
	assert.Error(t, err)

	_, err = NewConsumer(config.KafkaConfig{}, logger.NopLogger())
	assert.Error(t, err)

	p, err := NewProducer([]string{"localhost:9092"}, logger.NopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestNewKafkaProducer_MaxAttempts(t *testing.T) {
	p := NewKafkaProducer([]string{"localhost:9092"}, logger.NopLogger())
	assert.Zero(t, p.writer.MaxAttempts)
	assert.NoError(t, p.Close())

	p = NewKafkaProducer([]string{"localhost:9092"}, logger.NopLogger(), WithMaxAttempts(1))
	assert.Equal(t, 1, p.writer.MaxAttempts)
	assert.NoError(t, p.Close())
}
