package config

import (
	"testing"
)

func TestValidatorRequireNonEmpty(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{
			name:      "non-empty value",
			value:     "valid",
			wantError: false,
		},
		{
			name:      "empty value",
			value:     "",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequireNonEmpty("test_field", tt.value)
			if v.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantError)
			}
		})
	}
}

func TestValidatorRequirePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{name: "positive", value: 2, wantError: false},
		{name: "zero", value: 0, wantError: true},
		{name: "negative", value: -1, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator()
			v.RequirePositive("max_iterations", tt.value)
			if v.HasErrors() != tt.wantError {
				t.Errorf("HasErrors() = %v, want %v", v.HasErrors(), tt.wantError)
			}
		})
	}
}

func TestValidatorFloatRange(t *testing.T) {
	v := NewValidator()
	v.ValidateFloatRange("threshold", 0.85, 0, 1)
	if v.HasErrors() {
		t.Errorf("expected no errors, got %v", v.Errors())
	}

	v = NewValidator()
	v.ValidateFloatRange("threshold", 1.5, 0, 1)
	if !v.HasErrors() {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestValidatorCombinedError(t *testing.T) {
	v := NewValidator()
	v.RequireNonEmpty("a", "").RequirePositive("b", -3)

	err := v.Error()
	if err == nil {
		t.Fatal("expected combined error")
	}
	if len(v.Errors()) != 2 {
		t.Errorf("expected 2 errors, got %d", len(v.Errors()))
	}
}

func TestValidatorNoErrors(t *testing.T) {
	v := NewValidator()
	if err := v.Error(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}
