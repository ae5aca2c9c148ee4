package quarantine

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcrouter/internal/broker"
	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

const orderOrigin = "arn:aws:dynamodb:us-east-1:123456789012:table/Orders-prod-iad/stream/2024-01-01T00:00:00.000"

func sampleBatch() models.ChangeBatch {
	return models.NewChangeBatch(
		models.NewChangeRecordBuilder().
			WithEventID("ev-1").
			WithOrigin(orderOrigin).
			WithKeys(`{"orderId":{"S":"o-1"}}`).
			WithNewImage(`{"orderId":{"S":"o-1"},"total":{"N":"12.50"},"tags":{"SS":["a","b"]}}`).
			Build(),
		models.NewChangeRecordBuilder().
			WithEventID("ev-2").
			WithChangeType(models.ChangeModified).
			WithOrigin(orderOrigin).
			WithKeys(`{"orderId":{"S":"o-2"}}`).
			WithOldImage(`{"orderId":{"S":"o-2"},"state":{"S":"new"}}`).
			WithNewImage(`{"orderId":{"S":"o-2"},"state":{"S":"paid"}}`).
			Build(),
	)
}

func testClientConfig() config.ClientConfig {
	return config.ClientConfig{
		AttemptTimeout: time.Second,
		CallTimeout:    time.Second,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
	}
}

func TestEnvelopeRoundTripPreservesRecords(t *testing.T) {
	batch := sampleBatch()
	cause := errors.ErrProcessing.WithCause(fmt.Errorf("boom"))

	env := NewEnvelope("Orders", batch, cause)
	data, err := Encode(&env)
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, models.QuarantineEnvelopeVersion, env.Version)
	assert.False(t, env.FailedAt.IsZero())

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, env.ID, decoded.ID)
	assert.Equal(t, "Orders", decoded.Source)
	assert.Equal(t, "PROCESSING_ERROR", decoded.Failure.Class)
	require.Len(t, decoded.Batch.Records, len(batch.Records))
	for i, r := range batch.Records {
		got := decoded.Batch.Records[i]
		assert.Equal(t, r.EventID, got.EventID)
		assert.Equal(t, r.ChangeType, got.ChangeType)
		assert.Equal(t, r.OriginIdentifier, got.OriginIdentifier)
		assert.Equal(t, string(r.Keys), string(got.Keys))
		assert.Equal(t, string(r.OldImage), string(got.OldImage))
		assert.Equal(t, string(r.NewImage), string(got.NewImage))
	}
}

func TestEncodeKeepsExistingID(t *testing.T) {
	env := models.QuarantineEnvelope{ID: "fixed", Batch: sampleBatch()}
	_, err := Encode(&env)
	require.NoError(t, err)
	assert.Equal(t, "fixed", env.ID)
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte(`{"id":"x","version":2,"batch":{"records":[]}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSQSForwarder(t *testing.T) {
	client := &fakeSQS{}
	fwd := NewSQSForwarder(client, "https://sqs.example/dlq", time.Second, logger.NopLogger())

	env := NewEnvelope("Orders", sampleBatch(), errors.ErrWorkflow.WithCause(fmt.Errorf("throttled")))
	id, err := fwd.Forward(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "https://sqs.example/dlq", aws.ToString(in.QueueUrl))
	assert.Equal(t, "WORKFLOW_ERROR", aws.ToString(in.MessageAttributes["errorClass"].StringValue))
	assert.Equal(t, "Orders", aws.ToString(in.MessageAttributes["source"].StringValue))

	var body models.QuarantineEnvelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &body))
	assert.Len(t, body.Batch.Records, 2)
}

func TestSQSForwarderOmitsEmptySource(t *testing.T) {
	client := &fakeSQS{}
	fwd := NewSQSForwarder(client, "q", time.Second, logger.NopLogger())

	_, err := fwd.Forward(context.Background(), NewEnvelope("", sampleBatch(), errors.ErrMalformedIdentifier))
	require.NoError(t, err)

	_, ok := client.inputs[0].MessageAttributes["source"]
	assert.False(t, ok)
}

func TestSQSForwarderFailure(t *testing.T) {
	client := &fakeSQS{err: stderrors.New("access denied")}
	fwd := NewSQSForwarder(client, "q", time.Second, logger.NopLogger())

	_, err := fwd.Forward(context.Background(), NewEnvelope("Orders", sampleBatch(), stderrors.New("x")))
	require.Error(t, err)
	assert.True(t, errors.IsForward(err))
}

type fakeProducer struct {
	failures int
	calls    int
	topic    string
	messages []broker.Message
}

func (p *fakeProducer) Publish(_ context.Context, topic string, msg broker.Message) error {
	p.calls++
	if p.calls <= p.failures {
		return stderrors.New("leader not available")
	}
	p.topic = topic
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func TestKafkaForwarderRetriesThenSucceeds(t *testing.T) {
	producer := &fakeProducer{failures: 2}
	fwd := NewKafkaForwarder(producer, "cdc.quarantine", testClientConfig(), logger.NopLogger())

	env := NewEnvelope("Orders", sampleBatch(), stderrors.New("x"))
	id, err := fwd.Forward(context.Background(), env)
	require.NoError(t, err)

	assert.Equal(t, 3, producer.calls)
	assert.Equal(t, "cdc.quarantine", producer.topic)
	require.Len(t, producer.messages, 1)
	assert.Equal(t, id, string(producer.messages[0].Key))
	assert.Equal(t, "Orders", producer.messages[0].Headers["source"])
	assert.Equal(t, strconv.Itoa(models.QuarantineEnvelopeVersion), producer.messages[0].Headers["envelope-version"])

	decoded, err := Decode(producer.messages[0].Value)
	require.NoError(t, err)
	assert.Equal(t, id, decoded.ID)
}

func TestKafkaForwarderExhaustsRetries(t *testing.T) {
	producer := &fakeProducer{failures: 100}
	fwd := NewKafkaForwarder(producer, "cdc.quarantine", testClientConfig(), logger.NopLogger())

	_, err := fwd.Forward(context.Background(), NewEnvelope("Orders", sampleBatch(), stderrors.New("x")))
	require.Error(t, err)
	assert.True(t, errors.IsForward(err))
	assert.Equal(t, 3, producer.calls)
}

func TestNewForwarder(t *testing.T) {
	cfg := &config.Config{Quarantine: config.QuarantineConfig{
		Type:   "sqs",
		SQS:    config.SQSConfig{QueueURL: "https://sqs.example/dlq"},
		Client: testClientConfig(),
	}}

	fwd, closeFn, err := NewForwarder(aws.Config{Region: "us-east-1"}, cfg, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQSForwarder{}, fwd)
	assert.NoError(t, closeFn())

	cfg.Quarantine.Type = "kafka"
	cfg.Quarantine.Kafka = config.QuarantineKafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "dlq"}
	fwd, closeFn, err = NewForwarder(aws.Config{}, cfg, logger.NopLogger())
	require.NoError(t, err)
	assert.IsType(t, &KafkaForwarder{}, fwd)
	assert.NoError(t, closeFn())

	cfg.Quarantine.Type = "s3"
	_, closeFn, err = NewForwarder(aws.Config{}, cfg, logger.NopLogger())
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}
