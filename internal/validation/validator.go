package validation

import (
	"fmt"
	"strconv"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/go-payzen-notify/internal/payzen"
)

// New returns a validator with the notification struct-level rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// cross-field rules: currency must be in the table, expiry month 1..12
	// and an expiry month needs a year.
	v.RegisterStructValidation(notificationStructValidation, payzen.Fields{})

	return v
}

func notificationStructValidation(sl validatorv10.StructLevel) {
	f := sl.Current().Interface().(payzen.Fields)

	if f.Currency != "" {
		num, err := strconv.Atoi(f.Currency)
		if _, ok := payzen.CurrencyByNumeric(num); err != nil || !ok {
			sl.ReportError(f.Currency, "currency", "Currency", "supported_currency", f.Currency)
		}
	}

	if f.ExpiryMonth != "" {
		m, err := strconv.Atoi(f.ExpiryMonth)
		if err != nil || m < 1 || m > 12 {
			sl.ReportError(f.ExpiryMonth, "expiry_month", "ExpiryMonth", "month", f.ExpiryMonth)
		}
		if f.ExpiryYear == "" {
			sl.ReportError(f.ExpiryYear, "expiry_year", "ExpiryYear", "required_with_month", "")
		}
	}
}

// Notification validates the typed fields of a notification. Any failure is
// reported as payzen.ErrMalformedPayload with the offending fields.
func Notification(v *validatorv10.Validate, f payzen.Fields) error {
	if err := v.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", payzen.ErrMalformedPayload, ErrorsToMap(err))
	}
	return nil
}

// ErrorsToMap flattens validator errors into field -> message.
func ErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validatorv10.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
