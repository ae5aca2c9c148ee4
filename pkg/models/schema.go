package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateChangeRecord(r ChangeRecord) error {
	if r.OriginIdentifier == "" {
		return &ValidationError{
			Field:   "origin_identifier",
			Message: "origin identifier is required",
		}
	}

	if !r.ChangeType.Valid() {
		return &ValidationError{
			Field:   "change_type",
			Message: fmt.Sprintf("unknown change type %q", r.ChangeType),
		}
	}

	return nil
}

func ValidateTriggerRequest(r TriggerRequest) error {
	switch r.Action {
	case TriggerStart, TriggerStop:
	default:
		return &ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("unknown trigger action %q", r.Action),
		}
	}

	if r.ExecutionName == "" {
		return &ValidationError{
			Field:   "execution_name",
			Message: "execution name is required",
		}
	}

	if r.WorkflowRef == "" {
		return &ValidationError{
			Field:   "workflow_ref",
			Message: "workflow reference is required",
		}
	}

	return nil
}
