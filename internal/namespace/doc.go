// Package namespace encodes and decodes namespaced capability ids: strings of
// the form "<upstream-name><SEP><original-name>" that let the router expose
// the union of every upstream's tools, resources and prompts without one
// upstream's names shadowing another's, per spec §3/§4.2.
package namespace
