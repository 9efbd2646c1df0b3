package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures for the cache layer and the views.
type Kind string

const (
	// KindUnauthenticated: no usable token; the call never left the client.
	KindUnauthenticated Kind = "unauthenticated"
	// KindForbidden: the server refused the caller's role.
	KindForbidden Kind = "forbidden"
	KindNotFound  Kind = "not_found"
	// KindInvalidPayload: the response body did not match the documented
	// schema.
	KindInvalidPayload Kind = "invalid_payload"
	KindServer         Kind = "server"
	KindNetwork        Kind = "network"
)

// APIError is the normalized form of every gateway failure.
type APIError struct {
	Status  int
	Kind    Kind
	Message string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("gateway: %s", e.Message)
}

func kindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsUnauthenticated reports whether err means "no valid session".
func IsUnauthenticated(err error) bool { return kindOf(err) == KindUnauthenticated }

// IsForbidden reports whether err means the role was refused.
func IsForbidden(err error) bool { return kindOf(err) == KindForbidden }

// IsNotFound reports whether the resource is already gone.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

func kindForStatus(status int) Kind {
	switch {
	case status == 401:
		return KindUnauthenticated
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	default:
		return KindServer
	}
}
