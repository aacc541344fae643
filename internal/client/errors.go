package client

import (
	"errors"
	"fmt"
)

// Kind classifies a backend call failure.
type Kind string

const (
	// KindNetworkUnreachable is a transport-level failure with no response.
	KindNetworkUnreachable Kind = "network_unreachable"
	// KindAuthenticationFailed is a 401; the session credential expired.
	KindAuthenticationFailed Kind = "authentication_failed"
	// KindForbidden is a 403.
	KindForbidden Kind = "forbidden"
	// KindNotFound is a 404, also used when probing alternate endpoint shapes.
	KindNotFound Kind = "not_found"
	// KindServerError is any 5xx.
	KindServerError Kind = "server_error"
	// KindValidationFailed is a 422 with structured per-row errors.
	KindValidationFailed Kind = "validation_failed"
)

// Error is a backend call failure normalized at the point of the call: a
// human-readable summary plus an optional technical-detail blob.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Detail)
	}
	return e.Message
}

// IsKind reports whether err is a client error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// IsAuthError reports whether err means the session expired.
func IsAuthError(err error) bool {
	return IsKind(err, KindAuthenticationFailed)
}
