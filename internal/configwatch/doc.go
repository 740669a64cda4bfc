// Package configwatch loads the aggregator's JSON configuration file
// (top-level "mcpServers"/"mcpTemplates"), validates each upstream
// descriptor, and watches the file for changes via fsnotify, debouncing
// bursts of writes and diffing the new config against the active one so the
// upstream connection manager only recreates transports whose
// transport-affecting fields actually changed, per spec §4.6/§6.
package configwatch
