package payzen

import "errors"

// Terminal failures. None of them is retried by the bridge; the platform owns
// callback retries.
var (
	ErrSignatureInvalid     = errors.New("payzen: signature invalid")
	ErrMalformedPayload     = errors.New("payzen: malformed payload")
	ErrOrderNotFound        = errors.New("payzen: order not found")
	ErrOrderKeyMismatch     = errors.New("payzen: order key mismatch")
	ErrStateConflict        = errors.New("payzen: order state conflicts with transaction outcome")
	ErrUnsupportedCurrency  = errors.New("payzen: unsupported currency")
	ErrUnsupportedAlgorithm = errors.New("payzen: unsupported signature algorithm")
	ErrEmptyKey             = errors.New("payzen: empty secret key")
)
