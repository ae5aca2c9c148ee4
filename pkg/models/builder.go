package models

import (
	"encoding/json"
	"time"
)

type ChangeRecordBuilder struct {
	record ChangeRecord
}

func NewChangeRecordBuilder() *ChangeRecordBuilder {
	return &ChangeRecordBuilder{
		record: ChangeRecord{ChangeType: ChangeInserted},
	}
}

func (b *ChangeRecordBuilder) WithEventID(id string) *ChangeRecordBuilder {
	b.record.EventID = id
	return b
}

func (b *ChangeRecordBuilder) WithChangeType(t ChangeType) *ChangeRecordBuilder {
	b.record.ChangeType = t
	return b
}

func (b *ChangeRecordBuilder) WithOrigin(origin string) *ChangeRecordBuilder {
	b.record.OriginIdentifier = origin
	return b
}

func (b *ChangeRecordBuilder) WithRegion(region string) *ChangeRecordBuilder {
	b.record.Region = region
	return b
}

func (b *ChangeRecordBuilder) WithSequenceNumber(seq string) *ChangeRecordBuilder {
	b.record.SequenceNumber = seq
	return b
}

func (b *ChangeRecordBuilder) WithApproximateTime(t time.Time) *ChangeRecordBuilder {
	b.record.ApproximateTime = t
	return b
}

func (b *ChangeRecordBuilder) WithKeys(raw string) *ChangeRecordBuilder {
	b.record.Keys = json.RawMessage(raw)
	return b
}

func (b *ChangeRecordBuilder) WithOldImage(raw string) *ChangeRecordBuilder {
	b.record.OldImage = json.RawMessage(raw)
	return b
}

func (b *ChangeRecordBuilder) WithNewImage(raw string) *ChangeRecordBuilder {
	b.record.NewImage = json.RawMessage(raw)
	return b
}

func (b *ChangeRecordBuilder) Build() ChangeRecord {
	return b.record
}
