package models

import "time"

const QuarantineEnvelopeVersion = 1

type FailureInfo struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

// QuarantineEnvelope is written once per failed batch and never read back by
// the router; an offline reprocessing tool consumes it.
type QuarantineEnvelope struct {
	ID         string      `json:"id"`
	Version    int         `json:"version"`
	Source     string      `json:"source,omitempty"`
	FailedAt   time.Time   `json:"failed_at"`
	Failure    FailureInfo `json:"failure"`
	Batch      ChangeBatch `json:"batch"`
	RawPayload []byte      `json:"raw_payload,omitempty"`
}
