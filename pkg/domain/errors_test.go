package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  Kinded
		kind ErrorKind
	}{
		{"validation", NewValidationError("sku", "is required"), KindValidation},
		{"not_found", NewNotFoundError("agg-1"), KindNotFound},
		{"concurrency_conflict", NewConcurrencyConflict("agg-1", 2, 3), KindConcurrencyConflict},
		{"domain_rule_violation", NewDomainRuleViolation("agg-1", "broken"), KindDomainRuleViolation},
		{"back_pressure", NewBackPressureError(100, 100), KindBackPressure},
		{"storage_error", NewStorageError("commit failed", errors.New("disk full")), KindStorageError},
		{"external_delivery", NewExternalDeliveryError("out-1", errors.New("timeout")), KindExternalDelivery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind())
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("commit failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestExternalDeliveryError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewExternalDeliveryError("out-1", cause)
	assert.ErrorIs(t, err, cause)
}
