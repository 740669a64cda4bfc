// Package logging provides the structured, subsystem-tagged logger used
// throughout the aggregator: Debug/Info/Warn/Error wrap a process-wide
// slog.Logger, Audit emits a filterable [AUDIT] line for security-sensitive
// operations (the OAuth refresh path is its only caller), and Redact scrubs
// credential-shaped substrings (bearer tokens, query-string secrets,
// key=value pairs) out of every message and error before it reaches the
// handler, per the sanitizer required by spec §7.
//
// Every exported logging call routes through InitForCLI's configured
// *slog.Logger; InitForCLI is idempotent to call more than once in tests but
// is expected to be called exactly once at process startup in production.
package logging
