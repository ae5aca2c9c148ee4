package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChangeRecord(t *testing.T) {
	tests := []struct {
		name      string
		record    ChangeRecord
		wantField string
	}{
		{
			name:   "valid",
			record: NewChangeRecordBuilder().WithOrigin("arn:aws:dynamodb:us-east-1:111:table/Orders").Build(),
		},
		{
			name:      "missing origin",
			record:    NewChangeRecordBuilder().Build(),
			wantField: "origin_identifier",
		},
		{
			name:      "unknown change type",
			record:    NewChangeRecordBuilder().WithOrigin("arn:x").WithChangeType("UPSERT").Build(),
			wantField: "change_type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChangeRecord(tt.record)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			if assert.ErrorAs(t, err, &vErr) {
				assert.Equal(t, tt.wantField, vErr.Field)
			}
		})
	}
}

func TestValidateTriggerRequest(t *testing.T) {
	valid := TriggerRequest{Action: TriggerStart, ExecutionName: "job-1-InProgress", WorkflowRef: "arn:sm"}
	assert.NoError(t, ValidateTriggerRequest(valid))

	noName := valid
	noName.ExecutionName = ""
	assert.Error(t, ValidateTriggerRequest(noName))

	badAction := valid
	badAction.Action = "pause"
	assert.Error(t, ValidateTriggerRequest(badAction))
}

func TestIdempotencyKeyStable(t *testing.T) {
	a := TriggerRequest{Action: TriggerStart, ExecutionName: "n", WorkflowRef: "w", Input: []byte(`{"a":1}`)}
	b := TriggerRequest{Action: TriggerStart, ExecutionName: "n", WorkflowRef: "w", Input: []byte(`{"a":2}`)}
	assert.Equal(t, a.IdempotencyKey(), b.IdempotencyKey())
}
