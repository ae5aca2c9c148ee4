package quarantine

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"cdcrouter/internal/awsclient"
	"cdcrouter/internal/config"
	"cdcrouter/internal/constants"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/models"
	"cdcrouter/pkg/retry"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func NewSQSClient(awsCfg aws.Config, awsOpts config.AWSConfig, cfg config.ClientConfig) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.Retryer = awsclient.NewRetryer(cfg)
		o.HTTPClient = awsclient.NewHTTPClient(cfg)
		if awsOpts.Endpoint != "" {
			o.BaseEndpoint = aws.String(awsOpts.Endpoint)
		}
	})
}

type SQSForwarder struct {
	client      sqsAPI
	queueURL    string
	callTimeout time.Duration
	logger      logger.Logger
}

func NewSQSForwarder(client sqsAPI, queueURL string, callTimeout time.Duration, log logger.Logger) *SQSForwarder {
	return &SQSForwarder{
		client:      client,
		queueURL:    queueURL,
		callTimeout: callTimeout,
		logger:      log,
	}
}

func (f *SQSForwarder) Forward(ctx context.Context, env models.QuarantineEnvelope) (string, error) {
	body, err := Encode(&env)
	if err != nil {
		return "", errors.ErrForward.WithCause(err)
	}

	ctx, cancel := retry.WithCallTimeout(ctx, f.callTimeout)
	defer cancel()

	out, err := f.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(f.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: messageAttributes(env),
	})
	if err != nil {
		metrics.IncQuarantineForwardFailure(constants.QuarantineTypeSQS)
		return "", errors.ErrForward.
			WithCause(err).
			WithDetail("envelope_id", env.ID).
			WithMessage("failed to send envelope %s to quarantine queue", env.ID)
	}

	messageID := aws.ToString(out.MessageId)
	f.logger.InfowCtx(ctx, "Forwarded batch to quarantine queue",
		"envelope_id", env.ID,
		"message_id", messageID,
		"records", env.Batch.Len(),
	)
	return messageID, nil
}

func messageAttributes(env models.QuarantineEnvelope) map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{
		"envelopeVersion": {
			DataType:    aws.String("Number"),
			StringValue: aws.String(strconv.Itoa(env.Version)),
		},
	}
	if env.Failure.Class != "" {
		attrs["errorClass"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(env.Failure.Class),
		}
	}
	if env.Source != "" {
		attrs["source"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(env.Source),
		}
	}
	return attrs
}
