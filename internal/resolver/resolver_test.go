package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   models.LogicalSource
	}{
		{
			name:   "stream arn with stage and region suffix",
			origin: "arn:aws:dynamodb:us-east-1:123456789012:table/EvaluationJobMetadata-prod-IAD/stream/2024-01-01T00:00:00.000",
			want:   "EvaluationJobMetadata",
		},
		{
			name:   "stage and region suffix",
			origin: "arn:aws:svc:us-east-1:111:table/Orders-prod-use1",
			want:   "Orders",
		},
		{
			name:   "table arn without suffix",
			origin: "arn:aws:dynamodb:us-west-2:123456789012:table/Orders",
			want:   "Orders",
		},
		{
			name:   "extra colon segments are ignored",
			origin: "arn:aws:dynamodb:eu-west-1:1:table/Users-beta:extra",
			want:   "Users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.origin)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		origin string
	}{
		{"empty", ""},
		{"not an arn", "not-an-arn"},
		{"too few segments", "arn:aws:dynamodb:us-east-1:123456789012"},
		{"no slash", "arn:aws:dynamodb:us-east-1:123456789012:table"},
		{"empty resource name", "arn:aws:dynamodb:us-east-1:123456789012:table/"},
		{"leading dash", "arn:aws:dynamodb:us-east-1:123456789012:table/-prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.origin)
			require.Error(t, err)
			assert.True(t, errors.IsMalformedIdentifier(err))
		})
	}
}

func TestARNResolver(t *testing.T) {
	var r Resolver = ARNResolver{}
	got, err := r.Resolve("arn:aws:dynamodb:us-east-1:1:table/Orders-prod")
	require.NoError(t, err)
	assert.Equal(t, models.LogicalSource("Orders"), got)
}
