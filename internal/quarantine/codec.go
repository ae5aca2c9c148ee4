// Package quarantine forwards batches that could not be dispatched to a
// durable destination for offline reprocessing.
//
// Envelope encoding, version 1:
//
//	{
//	  "id":          "<uuid>",
//	  "version":     1,
//	  "source":      "<logical source, omitted when unresolved>",
//	  "failed_at":   "<RFC 3339 UTC>",
//	  "failure":     {"class": "<innermost error type or code>", "message": "<error text>"},
//	  "batch":       {"records": [<ChangeRecord>...]},
//	  "raw_payload": "<base64, only when the inbound message could not be decoded>"
//	}
//
// Record keys and images are embedded exactly as the stream delivered them
// (DynamoDB attribute-value JSON), so decoding an envelope yields records
// identical to the ones that failed.
package quarantine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cdcrouter/pkg/errors"
	"cdcrouter/pkg/models"
)

// NewEnvelope wraps the original batch with its failure metadata.
func NewEnvelope(source models.LogicalSource, batch models.ChangeBatch, cause error) models.QuarantineEnvelope {
	env := models.QuarantineEnvelope{
		Source: source.String(),
		Batch:  batch,
	}
	if cause != nil {
		env.Failure = models.FailureInfo{
			Class:   errors.Class(cause),
			Message: cause.Error(),
		}
	}
	return env
}

// Encode fills any missing ID, version and timestamp and marshals env.
func Encode(env *models.QuarantineEnvelope) ([]byte, error) {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.Version == 0 {
		env.Version = models.QuarantineEnvelopeVersion
	}
	if env.FailedAt.IsZero() {
		env.FailedAt = time.Now().UTC()
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quarantine envelope: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (models.QuarantineEnvelope, error) {
	var env models.QuarantineEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return models.QuarantineEnvelope{}, fmt.Errorf("failed to decode quarantine envelope: %w", err)
	}
	if env.Version != models.QuarantineEnvelopeVersion {
		return models.QuarantineEnvelope{}, fmt.Errorf("unsupported quarantine envelope version %d", env.Version)
	}
	return env, nil
}
