package http

import (
	"errors"
	"strings"
	"testing"
)

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestHex32Validation(t *testing.T) {
	type P struct {
		UserID string `json:"user_id" validate:"hex32"`
	}
	cv := NewValidator()

	if err := cv.Validate(P{UserID: strings.Repeat("a", 32)}); err != nil {
		t.Fatalf("expected valid hex32, got err: %v", err)
	}
	for _, s := range []string{
		"",
		strings.Repeat("A", 32),
		"deadbeef",
		strings.Repeat("g", 32),
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88x",
	} {
		err := cv.Validate(P{UserID: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "user_id", "32-char lowercase hex") {
			t.Fatalf("expected hex32 message for %q, got: %+v", s, fe)
		}
	}
}

func TestIntLikeValidation(t *testing.T) {
	type P struct {
		Amount float64 `json:"amount" validate:"intlike"`
	}
	cv := NewValidator()

	for _, v := range []float64{0, 1, 70000, 123.0} {
		if err := cv.Validate(P{Amount: v}); err != nil {
			t.Fatalf("expected intlike OK for %v, got %v", v, err)
		}
	}
	for _, v := range []float64{1.1, 500.01, -3.14} {
		err := cv.Validate(P{Amount: v})
		if err == nil {
			t.Fatalf("expected intlike error for %v", v)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "amount", "whole number") {
			t.Fatalf("expected 'whole number' for %v, got %+v", v, fe)
		}
	}
}

func TestDec2Validation(t *testing.T) {
	type P struct {
		LoanAmount float64 `json:"loan_amount" validate:"dec2"`
	}
	cv := NewValidator()

	for _, v := range []float64{1000, 1500.5, 0.99, 19999.99} {
		if err := cv.Validate(P{LoanAmount: v}); err != nil {
			t.Fatalf("expected dec2 OK for %v, got %v", v, err)
		}
	}
	for _, v := range []float64{1.234, 2.9999} {
		err := cv.Validate(P{LoanAmount: v})
		if err == nil {
			t.Fatalf("expected dec2 error for %v", v)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "loan_amount", "at most 2 decimal places") {
			t.Fatalf("expected 'at most 2 decimal places' for %v, got %+v", v, fe)
		}
	}
}

func TestKEPhoneValidation(t *testing.T) {
	type P struct {
		Phone string `json:"phone" validate:"kephone"`
	}
	cv := NewValidator()

	for _, s := range []string{"0712345678", "254712345678", "+254712345678"} {
		if err := cv.Validate(P{Phone: s}); err != nil {
			t.Fatalf("expected kephone OK for %q, got %v", s, err)
		}
	}
	for _, s := range []string{"0612345678", "12345", "07123456789", "phone"} {
		err := cv.Validate(P{Phone: s})
		if err == nil {
			t.Fatalf("expected kephone error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "phone", "Safaricom") {
			t.Fatalf("expected kephone message for %q, got %+v", s, fe)
		}
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Name     string  `json:"name"     validate:"required"`
		Min      int     `json:"min"      validate:"gte=10"`
		Max      int     `json:"max"      validate:"lte=5"`
		Amount   float64 `json:"amount"   validate:"gt=0"`
		Category string  `json:"category" validate:"oneof=permanent casual"`
		Date     string  `json:"date"     validate:"datetime=2006-01-02"`
		Untagged int     `validate:"gte=1"`
	}
	cv := NewValidator()

	err := cv.Validate(P{Min: 9, Max: 6, Amount: -1, Category: "vip", Date: "2025/09/06"})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	checks := []struct{ field, msg string }{
		{"name", "is required"},
		{"min", "greater than or equal to 10"},
		{"max", "less than or equal to 5"},
		{"amount", "greater than 0"},
		{"category", "one of: permanent casual"},
		{"date", "2006-01-02 format"},
		{"Untagged", "greater than or equal to 1"},
	}
	for _, c := range checks {
		if !containsFieldMsg(fe, c.field, c.msg) {
			t.Errorf("missing %q for %s: %+v", c.msg, c.field, fe)
		}
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	fe := ToFieldErrors(errors.New("boom"))
	if len(fe) != 1 || fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe)
	}
}
