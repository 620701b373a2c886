package core

import (
	"errors"
	"strings"
	"time"
)

// FieldError is a single failed validation rule.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError carries one message per invalid field. It is returned
// by Validate methods so callers can surface field-level feedback.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// rule is one row of a declarative validation table: a field name, a
// predicate, and the message reported when the predicate fails.
type rule struct {
	field   string
	ok      func() bool
	message string
}

func runRules(rules []rule) error {
	var fields []FieldError
	for _, r := range rules {
		if !r.ok() {
			fields = append(fields, FieldError{Field: r.field, Message: r.message})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Validate applies the purchase field rules. Description and due date
// are optional; a due date, when present, must be a well-formed date.
func (p Purchase) Validate() error {
	name := strings.TrimSpace(p.Name)
	return runRules([]rule{
		{"name", func() bool { return name != "" }, "name is required"},
		{"name", func() bool { return len(name) <= 200 }, "name must be at most 200 characters"},
		{"description", func() bool { return len(p.Description) <= 500 }, "description must be at most 500 characters"},
		{"amount", func() bool { return p.Amount.Cents > 0 }, "amount must be a positive integer number of cents"},
		{"purchaseDate", func() bool { return ValidDate(p.PurchaseDate) }, "purchase date must be a valid YYYY-MM-DD date"},
		{"dueDate", func() bool { return p.DueDate == "" || ValidDate(p.DueDate) }, "due date must be a valid YYYY-MM-DD date"},
		{"status", p.Status.Valid, "status must be one of PAGO, ANDAMENTO, ATRASADO"},
	})
}

// ValidateRegistration applies the account registration rules.
func ValidateRegistration(name, login, password string) error {
	return append2(ValidateName(name), ValidateLogin(login, password))
}

// ValidateName applies the display-name rules, shared by registration
// and profile updates.
func ValidateName(name string) error {
	return runRules([]rule{
		{"name", func() bool { return len(strings.TrimSpace(name)) >= 2 }, "name must be at least 2 characters"},
		{"name", func() bool { return len(name) <= 100 }, "name must be at most 100 characters"},
	})
}

// ValidateLogin applies the credential rules shared by login and
// registration.
func ValidateLogin(login, password string) error {
	return runRules([]rule{
		{"login", func() bool { return len(login) >= 3 }, "login must be at least 3 characters"},
		{"login", func() bool { return len(login) <= 50 }, "login must be at most 50 characters"},
		{"password", func() bool { return len(password) >= 6 }, "password must be at least 6 characters"},
		{"password", func() bool { return len(password) <= 100 }, "password must be at most 100 characters"},
	})
}

// append2 merges two validation results into one error.
func append2(a, b error) error {
	var va, vb *ValidationError
	okA := errors.As(a, &va)
	okB := errors.As(b, &vb)
	switch {
	case okA && okB:
		return &ValidationError{Fields: append(va.Fields, vb.Fields...)}
	case okA:
		return va
	case okB:
		return vb
	}
	return nil
}
