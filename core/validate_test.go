package core

import (
	"errors"
	"strings"
	"testing"
)

func validPurchase() Purchase {
	return Purchase{
		Name:         "Electric bill",
		Amount:       Money{Cents: 15000},
		PurchaseDate: "2024-01-01",
		DueDate:      "2024-01-10",
		Status:       StatusInProgress,
	}
}

func TestPurchaseValidate(t *testing.T) {
	if err := validPurchase().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Description and due date are optional.
	p := validPurchase()
	p.DueDate = ""
	p.Description = ""
	if err := p.Validate(); err != nil {
		t.Fatalf("optional fields should be accepted, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Purchase)
		field  string
	}{
		{"empty name", func(p *Purchase) { p.Name = "  " }, "name"},
		{"name too long", func(p *Purchase) { p.Name = strings.Repeat("x", 201) }, "name"},
		{"description too long", func(p *Purchase) { p.Description = strings.Repeat("x", 501) }, "description"},
		{"zero amount", func(p *Purchase) { p.Amount.Cents = 0 }, "amount"},
		{"negative amount", func(p *Purchase) { p.Amount.Cents = -100 }, "amount"},
		{"missing purchase date", func(p *Purchase) { p.PurchaseDate = "" }, "purchaseDate"},
		{"malformed purchase date", func(p *Purchase) { p.PurchaseDate = "01/02/2024" }, "purchaseDate"},
		{"impossible purchase date", func(p *Purchase) { p.PurchaseDate = "2024-02-30" }, "purchaseDate"},
		{"malformed due date", func(p *Purchase) { p.DueDate = "soon" }, "dueDate"},
		{"unknown status", func(p *Purchase) { p.Status = "DONE" }, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPurchase()
			tc.mutate(&p)

			err := p.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected a %q field error, got %v", tc.field, verr.Fields)
			}
		})
	}
}

func TestPurchaseValidateCollectsAllFields(t *testing.T) {
	p := Purchase{Status: "bogus"}
	err := p.Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// name, amount, purchaseDate and status are all invalid at once.
	if len(verr.Fields) < 4 {
		t.Fatalf("expected one message per invalid field, got %v", verr.Fields)
	}
}

func TestValidateLogin(t *testing.T) {
	if err := ValidateLogin("maria", "secret1"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name            string
		login, password string
	}{
		{"login too short", "ab", "secret1"},
		{"login too long", strings.Repeat("x", 51), "secret1"},
		{"password too short", "maria", "12345"},
		{"password too long", "maria", strings.Repeat("x", 101)},
	}
	for _, tc := range cases {
		if err := ValidateLogin(tc.login, tc.password); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestValidateRegistration(t *testing.T) {
	if err := ValidateRegistration("Maria Silva", "maria", "secret1"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	err := ValidateRegistration("M", "ab", "123")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected name, login and password errors, got %v", verr.Fields)
	}
}
