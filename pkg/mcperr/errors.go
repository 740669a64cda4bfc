package mcperr

import (
	"errors"
	"fmt"
)

// Kind identifies a category of failure in the error taxonomy (spec §7).
type Kind int

const (
	// KindUnknown is the zero value; never constructed on purpose.
	KindUnknown Kind = iota
	// KindConfigInvalid is raised by the config watcher on a malformed file.
	KindConfigInvalid
	// KindDisconnected is raised when sending to a non-connected upstream.
	KindDisconnected
	// KindCircularDependency is raised when an upstream's handshake advertises
	// this agent's own name.
	KindCircularDependency
	// KindTimeout is raised when a request deadline elapses.
	KindTimeout
	// KindNotFound is raised for an unknown upstream id in a cursor or dispatch.
	KindNotFound
	// KindNotVisible is raised when an upstream is hidden by the active filter.
	KindNotVisible
	// KindInvalidFilter is raised by the tag-filter DSL/Mongo-query parsers.
	KindInvalidFilter
	// KindInvalidCursor is raised by the pagination cursor codec.
	KindInvalidCursor
	// KindInvalidParams is raised for malformed request parameters.
	KindInvalidParams
	// KindAuthFailed is raised when an upstream 401s even after a credential refresh.
	KindAuthFailed
	// KindTransient is raised for retryable network/transport failures.
	KindTransient
	// KindFatal is raised for unrecoverable startup failures.
	KindFatal
	// KindPresetNotFound is raised when a session names an unknown preset.
	KindPresetNotFound
	// KindPermissionDenied is raised when the destructive-tools denylist
	// blocks a tools/call.
	KindPermissionDenied
)

func (k Kind) String() string {
	switch k {
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindDisconnected:
		return "Disconnected"
	case KindCircularDependency:
		return "CircularDependency"
	case KindTimeout:
		return "Timeout"
	case KindNotFound:
		return "NotFound"
	case KindNotVisible:
		return "NotVisible"
	case KindInvalidFilter:
		return "InvalidFilter"
	case KindInvalidCursor:
		return "InvalidCursor"
	case KindInvalidParams:
		return "InvalidParams"
	case KindAuthFailed:
		return "AuthFailed"
	case KindTransient:
		return "Transient"
	case KindFatal:
		return "Fatal"
	case KindPresetNotFound:
		return "PresetNotFound"
	case KindPermissionDenied:
		return "PermissionDenied"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carrying a Kind, an optional wrapped cause
// and free-form metadata (e.g. the deadline that elapsed for KindTimeout).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Meta    map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithMeta attaches metadata and returns the same *Error for chaining.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// JSONRPCCode maps a Kind to the JSON-RPC error code the router must emit on
// the inbound session, per spec §7.
func (k Kind) JSONRPCCode() int {
	switch k {
	case KindDisconnected, KindTimeout, KindAuthFailed, KindCircularDependency:
		return -32000 // server error, per spec's explicit -32000 for Disconnected
	case KindNotFound, KindNotVisible, KindInvalidParams, KindInvalidCursor, KindPresetNotFound:
		return -32602 // Invalid params
	case KindInvalidFilter:
		return -32602
	case KindPermissionDenied:
		return -32001 // server error, distinct from -32000 Disconnected
	default:
		return -32603 // Internal error
	}
}

// HTTPStatus maps a Kind to the HTTP status used by the query-string parsing
// paths of §6 (preset/tag-filter/tags query parameters).
func (k Kind) HTTPStatus() int {
	switch k {
	case KindPresetNotFound, KindInvalidFilter, KindInvalidParams, KindInvalidCursor:
		return 400
	case KindAuthFailed:
		return 401
	case KindPermissionDenied:
		return 403
	case KindNotFound:
		return 404
	case KindFatal:
		return 500
	default:
		return 500
	}
}
