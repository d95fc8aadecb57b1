// ABOUTME: Error hierarchy for the workflow backend client.
// ABOUTME: TransportError, APIError and DecodeError share a base ClientError and match via errors.As.

package workflow

import (
	"errors"
	"fmt"
)

// ClientError is the base type embedded by every workflow client error.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// TransportError means the request never completed: dial failures, resets,
// an expired request timeout or a cancelled context.
type TransportError struct {
	ClientError
	Timeout bool
}

func (e *TransportError) Error() string { return e.ClientError.Error() }
func (e *TransportError) Unwrap() error { return e.ClientError.Unwrap() }

func (e *TransportError) As(target any) bool {
	switch t := target.(type) {
	case **ClientError:
		*t = &e.ClientError
		return true
	default:
		return false
	}
}

// APIError means the backend answered with a non-2xx status.
type APIError struct {
	ClientError
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string { return e.ClientError.Error() }
func (e *APIError) Unwrap() error { return e.ClientError.Unwrap() }

func (e *APIError) As(target any) bool {
	switch t := target.(type) {
	case **ClientError:
		*t = &e.ClientError
		return true
	default:
		return false
	}
}

// DecodeError means a 2xx response body did not have the expected shape.
type DecodeError struct {
	ClientError
	Body string
}

func (e *DecodeError) Error() string { return e.ClientError.Error() }
func (e *DecodeError) Unwrap() error { return e.ClientError.Unwrap() }

func (e *DecodeError) As(target any) bool {
	switch t := target.(type) {
	case **ClientError:
		*t = &e.ClientError
		return true
	default:
		return false
	}
}

// Error kinds reported by Kind.
const (
	KindTransport = "transport"
	KindAPI       = "api"
	KindDecode    = "decode"
	KindUnknown   = "unknown"
)

// Kind classifies err for logs and metrics. It returns "" for a nil error.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var te *TransportError
	if errors.As(err, &te) {
		return KindTransport
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return KindAPI
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return KindDecode
	}
	return KindUnknown
}

func newAPIError(statusCode int, status, body string) *APIError {
	return &APIError{
		ClientError: ClientError{Message: fmt.Sprintf("workflow API request failed with status %d", statusCode)},
		StatusCode:  statusCode,
		Status:      status,
		Body:        body,
	}
}

func newDecodeError(cause error, body []byte) *DecodeError {
	return &DecodeError{
		ClientError: ClientError{Message: "decoding workflow response", Cause: cause},
		Body:        string(body),
	}
}
