// Package rendertemplate renders a template upstream descriptor (spec §4.6
// "mcpTemplates") against a per-session context before the connection
// manager decides whether the result can share an existing upstream
// instance (spec §9 "Template rendering vs. shared connections").
package rendertemplate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"mcpmux/internal/configwatch"
)

// Engine renders {{ ... }} expressions in an UpstreamDescriptor's string
// fields using Go's text/template with the Sprig function library, the
// same combination the muster config layer uses for arg templating.
type Engine struct{}

// New creates a template rendering engine.
func New() *Engine {
	return &Engine{}
}

// Render substitutes template expressions throughout d's string and map
// fields using vars, returning a fully-resolved copy. vars typically holds
// the calling session's project/user/environment context (spec §9).
func (e *Engine) Render(d configwatch.UpstreamDescriptor, vars map[string]any) (configwatch.UpstreamDescriptor, error) {
	out := d

	rendered, err := e.renderString(d.Command, vars)
	if err != nil {
		return out, fmt.Errorf("command: %w", err)
	}
	out.Command = rendered

	if len(d.Args) > 0 {
		out.Args = make([]string, len(d.Args))
		for i, a := range d.Args {
			r, err := e.renderString(a, vars)
			if err != nil {
				return out, fmt.Errorf("args[%d]: %w", i, err)
			}
			out.Args[i] = r
		}
	}

	if d.Env != nil {
		out.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			r, err := e.renderString(v, vars)
			if err != nil {
				return out, fmt.Errorf("env[%s]: %w", k, err)
			}
			out.Env[k] = r
		}
	}

	if url, err := e.renderString(d.URL, vars); err != nil {
		return out, fmt.Errorf("url: %w", err)
	} else {
		out.URL = url
	}

	if d.Headers != nil {
		out.Headers = make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			r, err := e.renderString(v, vars)
			if err != nil {
				return out, fmt.Errorf("headers[%s]: %w", k, err)
			}
			out.Headers[k] = r
		}
	}

	if cwd, err := e.renderString(d.Cwd, vars); err != nil {
		return out, fmt.Errorf("cwd: %w", err)
	} else {
		out.Cwd = cwd
	}

	return out, nil
}

func (e *Engine) renderString(s string, vars map[string]any) (string, error) {
	if s == "" {
		return s, nil
	}
	tmpl, err := template.New("upstream").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("execution failed: %w", err)
	}
	return buf.String(), nil
}

// Hash returns a stable fingerprint of a rendered descriptor's connection-
// relevant fields. Two sessions that render a template to the same hash are
// connection-shareable (spec §9); otherwise each session gets its own
// instance.
func Hash(d configwatch.UpstreamDescriptor) (string, error) {
	key := struct {
		Command string
		Args    []string
		Env     map[string]string
		URL     string
		Headers map[string]string
		Cwd     string
	}{d.Command, d.Args, d.Env, d.URL, d.Headers, d.Cwd}

	data, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("hash template render: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
