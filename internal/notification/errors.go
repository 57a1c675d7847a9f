package notification

import (
	"errors"
	"fmt"
	"strings"

	"notification_hub/internal/common"
)

// ValidationError rejects a payload before any store access.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "invalid notification: " + strings.Join(parts, "; ")
}

// StoreError wraps a failed store operation.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Key: key, Err: err}
}

// ToAPIError maps domain errors onto the HTTP taxonomy.
func ToAPIError(err error) *common.APIError {
	if apiErr, ok := common.IsAPIError(err); ok {
		return apiErr
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return common.NewValidationAPIError(ve.Fields)
	}
	var se *StoreError
	if errors.As(err, &se) {
		return common.NewStoreAPIError(se)
	}
	return common.ErrInternalServer.WithDetails(err.Error())
}
