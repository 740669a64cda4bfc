// Package filter implements the tag-based visibility engine of spec §4.5:
// a recursive-descent parser for the AND/OR/NOT tag-filter DSL, a
// MongoDB-style query evaluator ({$or}, {$and}, {$advanced}, {tag:v}), a
// comma-separated simple-OR mode, and a preset store that lets a session
// name a persisted query instead of supplying one inline.
package filter
