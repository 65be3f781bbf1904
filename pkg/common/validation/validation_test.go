package validation

import (
	stderrors "errors"
	"testing"

	"github.com/vnykmshr/taskflow/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
		{"large positive", 1000000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("resolve", "workers", tt.value)

			if tt.wantError {
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
				if !stderrors.Is(err, errors.ErrInvalidConfiguration) {
					t.Errorf("expected ErrInvalidConfiguration, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 3, false},
		{"zero value", 0, false},
		{"negative value", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("resolve", "worker_greediness", tt.value)

			if tt.wantError {
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	if err := ValidateNotNil("executor", "fn", nil); !errors.IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if err := ValidateNotNil("executor", "fn", func() {}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := ValidatePositive("resolve", "workers", 0)

	var valErr *errors.ValidationError
	if !stderrors.As(err, &valErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if valErr.Module != "resolve" || valErr.Field != "workers" || valErr.Value != 0 {
		t.Errorf("unexpected details: %+v", valErr)
	}
	if valErr.Hint == "" {
		t.Error("expected a hint")
	}
}
