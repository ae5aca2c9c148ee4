package models

import (
	"encoding/json"
	"time"
)

type ChangeType string

const (
	ChangeInserted ChangeType = "INSERT"
	ChangeModified ChangeType = "MODIFY"
	ChangeRemoved  ChangeType = "REMOVE"
)

func (t ChangeType) Valid() bool {
	switch t {
	case ChangeInserted, ChangeModified, ChangeRemoved:
		return true
	default:
		return false
	}
}

// ChangeRecord is one captured mutation. Images are kept as the raw JSON the
// stream delivered (DynamoDB attribute-value form) so a quarantined batch
// round-trips byte for byte.
type ChangeRecord struct {
	EventID          string          `json:"event_id"`
	ChangeType       ChangeType      `json:"change_type"`
	OriginIdentifier string          `json:"origin_identifier"`
	Region           string          `json:"region,omitempty"`
	SequenceNumber   string          `json:"sequence_number,omitempty"`
	ApproximateTime  time.Time       `json:"approximate_time,omitzero"`
	Keys             json.RawMessage `json:"keys,omitempty"`
	OldImage         json.RawMessage `json:"old_image,omitempty"`
	NewImage         json.RawMessage `json:"new_image,omitempty"`
}

// ChangeBatch is the unit of one invocation. All records are expected to
// share a logical source; only the first record's origin is consulted.
type ChangeBatch struct {
	Records []ChangeRecord `json:"records"`
}

func NewChangeBatch(records ...ChangeRecord) ChangeBatch {
	return ChangeBatch{Records: records}
}

func (b ChangeBatch) Len() int {
	return len(b.Records)
}

func (b ChangeBatch) IsEmpty() bool {
	return len(b.Records) == 0
}

func (b ChangeBatch) First() (ChangeRecord, bool) {
	if len(b.Records) == 0 {
		return ChangeRecord{}, false
	}
	return b.Records[0], true
}

// LogicalSource is the entity-type name a record belongs to, with stage and
// region suffixes removed.
type LogicalSource string

func (s LogicalSource) String() string {
	return string(s)
}
