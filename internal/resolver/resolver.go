// Package resolver maps a change record's origin identifier to the logical
// source that selects its processor.
package resolver

import (
	"strings"

	"cdcrouter/internal/constants"
	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

// Resolve extracts the logical source from an origin identifier such as
//
//	arn:aws:dynamodb:us-east-1:123456789012:table/EvaluationJobMetadata-prod-IAD/stream/2024-01-01T00:00:00.000
//
// It takes the sixth ":" segment, the second "/" token of that segment, and
// the first "-" token of that. Any missing piece is ErrMalformedIdentifier.
func Resolve(origin string) (models.LogicalSource, error) {
	segments := strings.Split(origin, constants.OriginSegmentDelimiter)
	if len(segments) < constants.OriginMinSegments {
		return "", malformed(origin, "too few segments")
	}

	resource := strings.Split(segments[constants.OriginResourceSegment], constants.ResourceDelimiter)
	if len(resource) < 2 || resource[1] == "" {
		return "", malformed(origin, "missing resource name")
	}

	name, _, _ := strings.Cut(resource[1], constants.ResourceSuffixDelimiter)
	if name == "" {
		return "", malformed(origin, "empty logical source")
	}

	return models.LogicalSource(name), nil
}

func malformed(origin, reason string) error {
	return errors.ErrMalformedIdentifier.
		WithDetail("origin", origin).
		WithDetail("reason", reason)
}

// Resolver is the injectable form of Resolve.
type Resolver interface {
	Resolve(origin string) (models.LogicalSource, error)
}

type ARNResolver struct{}

func (ARNResolver) Resolve(origin string) (models.LogicalSource, error) {
	return Resolve(origin)
}
