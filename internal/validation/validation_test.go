package validation

import (
	"errors"
	"testing"

	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
)

func validFields() payzen.Fields {
	return payzen.Fields{
		OrderID:     "42",
		OrderInfo:   "wc_order_abc",
		TransID:     "000123",
		TransStatus: "AUTHORISED",
		Amount:      "3000",
		Currency:    "978",
		CardNumber:  "497010XXXXXX0055",
		CardBrand:   "CB",
		ExpiryMonth: "6",
		ExpiryYear:  "2027",
		CtxMode:     "TEST",
	}
}

func TestNotification_Valid(t *testing.T) {
	v := New()

	if err := Notification(v, validFields()); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestNotification_MissingRequiredFields(t *testing.T) {
	v := New()

	f := validFields()
	f.OrderInfo = ""
	f.TransID = ""

	err := Notification(v, f)
	if err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
	if !errors.Is(err, payzen.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestNotification_UnsupportedCurrency(t *testing.T) {
	v := New()

	f := validFields()
	f.Currency = "999"

	if err := Notification(v, f); err == nil {
		t.Fatal("expected error for unsupported currency, got nil")
	}
}

func TestNotification_ExpiryRules(t *testing.T) {
	v := New()

	f := validFields()
	f.ExpiryMonth = "13"
	if err := Notification(v, f); err == nil {
		t.Fatal("expected error for month 13, got nil")
	}

	f = validFields()
	f.ExpiryYear = ""
	if err := Notification(v, f); err == nil {
		t.Fatal("expected error for month without year, got nil")
	}

	f = validFields()
	f.ExpiryMonth = ""
	f.ExpiryYear = ""
	if err := Notification(v, f); err != nil {
		t.Fatalf("expiry is optional, got %v", err)
	}
}

func TestErrorsToMap(t *testing.T) {
	v := New()

	f := validFields()
	f.OrderID = ""
	err := v.Struct(f)
	if err == nil {
		t.Fatal("expected error")
	}
	m := ErrorsToMap(err)
	if _, ok := m["Fields.OrderID"]; !ok {
		t.Fatalf("expected Fields.OrderID entry, got %v", m)
	}
}
