package workflow

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"

	"cdcrouter/internal/awsclient"
	"cdcrouter/internal/config"
	"cdcrouter/internal/logger"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/metrics"
	"cdcrouter/pkg/models"
	"cdcrouter/pkg/retry"
)

// sfnAPI is the subset of *sfn.Client the engine calls.
type sfnAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
	StopExecution(ctx context.Context, params *sfn.StopExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StopExecutionOutput, error)
}

// NewSFNClient builds a Step Functions client that owns the retry policy:
// per-attempt timeout on the HTTP client, bounded retries with backoff.
func NewSFNClient(awsCfg aws.Config, awsOpts config.AWSConfig, cfg config.ClientConfig) *sfn.Client {
	return sfn.NewFromConfig(awsCfg, func(o *sfn.Options) {
		o.Retryer = awsclient.NewRetryer(cfg)
		o.HTTPClient = awsclient.NewHTTPClient(cfg)
		if awsOpts.Endpoint != "" {
			o.BaseEndpoint = aws.String(awsOpts.Endpoint)
		}
	})
}

type SFNEngine struct {
	client      sfnAPI
	callTimeout time.Duration
	logger      logger.Logger
}

func NewSFNEngine(client sfnAPI, callTimeout time.Duration, log logger.Logger) *SFNEngine {
	return &SFNEngine{
		client:      client,
		callTimeout: callTimeout,
		logger:      log,
	}
}

func (e *SFNEngine) Submit(ctx context.Context, req models.TriggerRequest) (Result, error) {
	if err := models.ValidateTriggerRequest(req); err != nil {
		return Result{}, errors.ErrValidation.WithCause(err)
	}

	ctx, cancel := retry.WithCallTimeout(ctx, e.callTimeout)
	defer cancel()

	start := time.Now()
	var (
		res Result
		err error
	)
	switch req.Action {
	case models.TriggerStart:
		res, err = e.start(ctx, req)
	case models.TriggerStop:
		res, err = e.stop(ctx, req)
	}
	metrics.ObserveWorkflowCallDuration(string(req.Action), time.Since(start))

	return res, err
}

func (e *SFNEngine) start(ctx context.Context, req models.TriggerRequest) (Result, error) {
	input := "{}"
	if len(req.Input) > 0 {
		input = string(req.Input)
	}

	out, err := e.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(req.WorkflowRef),
		Name:            aws.String(req.ExecutionName),
		Input:           aws.String(input),
	})
	if err != nil {
		var exists *types.ExecutionAlreadyExists
		if stderrors.As(err, &exists) {
			e.logger.InfowCtx(ctx, "Execution already exists",
				"execution_name", req.ExecutionName,
				"state_machine", req.WorkflowRef,
			)
			return Result{ExecutionARN: ExecutionARN(req.WorkflowRef, req.ExecutionName), Duplicate: true}, nil
		}
		return Result{}, errors.ErrWorkflow.
			WithCause(err).
			WithMessage("start execution %s failed", req.ExecutionName)
	}

	return Result{ExecutionARN: aws.ToString(out.ExecutionArn)}, nil
}

func (e *SFNEngine) stop(ctx context.Context, req models.TriggerRequest) (Result, error) {
	arn := ExecutionARN(req.WorkflowRef, req.ExecutionName)

	input := &sfn.StopExecutionInput{ExecutionArn: aws.String(arn)}
	if req.Cause != "" {
		input.Cause = aws.String(req.Cause)
	}

	if _, err := e.client.StopExecution(ctx, input); err != nil {
		var missing *types.ExecutionDoesNotExist
		if stderrors.As(err, &missing) {
			e.logger.InfowCtx(ctx, "Execution to stop does not exist",
				"execution_arn", arn,
			)
			return Result{ExecutionARN: arn, Duplicate: true}, nil
		}
		return Result{}, errors.ErrWorkflow.
			WithCause(err).
			WithMessage("stop execution %s failed", arn)
	}

	return Result{ExecutionARN: arn}, nil
}

var _ Engine = (*SFNEngine)(nil)
