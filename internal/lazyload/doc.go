// Package lazyload implements the orchestrator and schema cache of spec
// §4.4: it decides, per the configured mode (full, metatool, hybrid), which
// real tools a session sees directly versus which are reachable only
// through the three meta-tools (tool_list, tool_schema, tool_invoke), and it
// caches per-(upstream, tool) schemas in an LRU with in-flight-loader
// coalescing so N concurrent requests for an unwarmed schema trigger the
// underlying upstream fetch exactly once.
package lazyload
