// Package mcperr implements the error taxonomy of the aggregator (kinds, not
// Go types): ConfigInvalid, Disconnected, CircularDependency, Timeout, NotFound,
// NotVisible, InvalidFilter, InvalidCursor, InvalidParams, AuthFailed, Transient,
// Fatal and PresetNotFound, each with a fixed propagation rule. Callers construct
// an *Error with New/Wrap and check it with Is/As the usual Go way; the router
// translates a Kind to the JSON-RPC error code or HTTP status it must emit.
package mcperr
