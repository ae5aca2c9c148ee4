// Package awsclient builds the shared AWS configuration and the bounded
// retry policy that every outbound AWS client owns.
package awsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsretry "github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"cdcrouter/internal/config"
	"cdcrouter/pkg/retry"
)

func LoadConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewRetryer returns the SDK standard retryer bounded to MaxRetries retries,
// with exponential delays from RetryBaseDelay capped at RetryMaxDelay.
func NewRetryer(cfg config.ClientConfig) aws.Retryer {
	delayer := backoffDelayer{base: cfg.RetryBaseDelay, max: cfg.RetryMaxDelay}

	return awsretry.NewStandard(func(o *awsretry.StandardOptions) {
		o.MaxAttempts = cfg.MaxRetries + 1
		o.Backoff = delayer
		if cfg.RetryMaxDelay > 0 {
			o.MaxBackoff = cfg.RetryMaxDelay
		}
	})
}

// NewHTTPClient bounds each individual attempt.
func NewHTTPClient(cfg config.ClientConfig) *awshttp.BuildableClient {
	return awshttp.NewBuildableClient().WithTimeout(cfg.AttemptTimeout)
}

type backoffDelayer struct {
	base time.Duration
	max  time.Duration
}

// BackoffDelay receives the 1-based retry attempt.
func (d backoffDelayer) BackoffDelay(attempt int, _ error) (time.Duration, error) {
	if attempt < 1 {
		attempt = 1
	}
	return retry.CalculateBackoffDuration(attempt-1, d.base, 2, d.max), nil
}
