package resource

import (
	"errors"
	"net/url"
	"testing"

	"staffdesk/portal/internal/apperr"
)

func TestEmployeeFromForm(t *testing.T) {
	e, err := EmployeeFromForm(url.Values{
		"name":       {"Ada"},
		"email":      {"ada@example.com"},
		"position":   {"Engineer"},
		"department": {"R&D"},
		"salary":     {" 1234.5 "},
	})
	if err != nil {
		t.Fatalf("EmployeeFromForm() error: %v", err)
	}
	if e.Name != "Ada" || e.Department != "R&D" || e.Salary != 1234.5 {
		t.Fatalf("unexpected employee: %+v", e)
	}
}

func TestEmptyAmountIsZero(t *testing.T) {
	p, err := ProductFromForm(url.Values{"name": {"Widget"}})
	if err != nil {
		t.Fatalf("ProductFromForm() error: %v", err)
	}
	if p.Price != 0 {
		t.Fatalf("expected price 0, got %v", p.Price)
	}
}

func TestInvalidAmount(t *testing.T) {
	for _, raw := range []string{"abc", "NaN", "Inf", "12,5"} {
		_, err := ProductFromForm(url.Values{"price": {raw}})
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != "price" {
			t.Fatalf("price %q: expected FieldError for price, got %v", raw, err)
		}
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("price %q: expected validation kind", raw)
		}
	}

	_, err := EmployeeFromForm(url.Values{"salary": {"lots"}})
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "salary" {
		t.Fatalf("expected FieldError for salary, got %v", err)
	}
}
