package quarantine

import (
	"context"

	"cdcrouter/pkg/models"
)

// Forwarder delivers one envelope and returns the destination's message ID.
// Implementations own their retry policy; a returned error is final.
type Forwarder interface {
	Forward(ctx context.Context, env models.QuarantineEnvelope) (string, error)
}
