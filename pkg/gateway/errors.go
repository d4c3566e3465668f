package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoBody is returned when a successful response carries no body to
	// stream from.
	ErrNoBody = errors.New("response has no body")

	// ErrMissingAPIKey is returned when the gateway is used without a
	// configured credential.
	ErrMissingAPIKey = errors.New("gateway API key is not configured")
)

// Kind classifies a non-2xx response.
type Kind int

const (
	// KindFailure is any non-2xx status without a more specific meaning.
	KindFailure Kind = iota

	// KindRateLimited is HTTP 429.
	KindRateLimited

	// KindQuotaExhausted is HTTP 402, used by the gateway when the account
	// has run out of credits.
	KindQuotaExhausted
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	default:
		return "failure"
	}
}

// StatusError is a non-2xx response, classified before any of its body is
// streamed.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Kind returns the classification of the status code.
func (e *StatusError) Kind() Kind {
	return Classify(e.StatusCode)
}

// Classify maps an HTTP status code to a Kind.
func Classify(status int) Kind {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusPaymentRequired:
		return KindQuotaExhausted
	default:
		return KindFailure
	}
}
