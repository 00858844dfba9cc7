package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into one of the boundary categories the HTTP
// layer knows how to translate. Per-peer failures never surface as errors;
// they become status-vector entries instead.
type Kind int

const (
	// KindNotFound means a record is absent locally.
	KindNotFound Kind = iota + 1

	// KindUnauthorized means the access map forbids the operation on the
	// requested dataset.
	KindUnauthorized

	// KindUnauthenticated means the token is missing or could not be
	// resolved in gateway mode.
	KindUnauthenticated

	// KindPeerUnreachable means a peer connection failed or timed out.
	KindPeerUnreachable

	// KindPeerMalformed means a peer returned a body that does not parse
	// as the declared protobuf type.
	KindPeerMalformed

	// KindBadRequest means the inbound request shape, paging arguments or
	// filter keys are invalid.
	KindBadRequest

	// KindInternal is any unexpected failure during local dispatch.
	KindInternal
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPeerUnreachable:
		return "peer_unreachable"
	case KindPeerMalformed:
		return "peer_malformed"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// HTTPStatus returns the HTTP status code the kind translates to. This is
// the single place where error kinds map to wire codes.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnauthenticated:
		return http.StatusForbidden
	case KindPeerUnreachable:
		return http.StatusServiceUnavailable
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a kind-classified error carried across package boundaries.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap supports errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// E constructs a kind-classified error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain. Unclassified errors are
// reported as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
