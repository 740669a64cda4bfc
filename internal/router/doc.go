// Package router implements the inbound session layer of spec §4.2: it
// builds a Capability Index of namespaced tools/resources/prompts across
// every connected upstream, dispatches an inbound session's list/call/read
// requests against that index with per-session tag-filter visibility and
// cross-upstream cursor pagination, and emits batched listChanged
// notifications when the index changes under it.
package router
