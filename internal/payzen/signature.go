package payzen

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ParamPrefix namespaces every platform field. Only prefixed fields are signed.
const ParamPrefix = "vads_"

// SignatureField carries the signature; it is never part of the signed set.
const SignatureField = "signature"

const signatureSeparator = "+"

// Algorithm selects how the signed string is digested.
type Algorithm string

const (
	// AlgorithmSHA1 is the legacy hex SHA-1 digest.
	AlgorithmSHA1 Algorithm = "SHA-1"
	// AlgorithmHMACSHA256 is a base64 HMAC-SHA-256 keyed with the secret.
	AlgorithmHMACSHA256 Algorithm = "SHA-256"
)

// ParseAlgorithm maps a configured name onto a supported Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToUpper(strings.TrimSpace(name))); a {
	case AlgorithmSHA1, AlgorithmHMACSHA256:
		return a, nil
	case "HMAC-SHA-256":
		return AlgorithmHMACSHA256, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}

// signingString joins prefixed values in ascending key order and appends key.
func signingString(params map[string]string, key string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		if strings.HasPrefix(name, ParamPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	items := make([]string, 0, len(names)+1)
	for _, name := range names {
		items = append(items, params[name])
	}
	items = append(items, key)

	return strings.Join(items, signatureSeparator)
}

// Sign computes the signature of params with key.
func Sign(params map[string]string, key string, algo Algorithm) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	sign := signingString(params, key)

	switch algo {
	case AlgorithmSHA1:
		sum := sha1.Sum([]byte(sign))
		return hex.EncodeToString(sum[:]), nil
	case AlgorithmHMACSHA256:
		mac := hmac.New(sha256.New, []byte(key))
		mac.Write([]byte(sign))
		return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algo)
	}
}

// Verify reports whether provided is the signature of params under key.
// It fails closed on an empty key, an empty signature or an unknown algorithm.
func Verify(params map[string]string, provided, key string, algo Algorithm) bool {
	if provided == "" {
		return false
	}
	expected, err := Sign(params, key, algo)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
