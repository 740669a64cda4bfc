package configwatch

import (
	"regexp"
	"time"

	"mcpmux/pkg/mcperr"
)

// TransportKind identifies how the aggregator talks to an upstream.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
	TransportSSE   TransportKind = "sse"
)

var nameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,49}$`)

// UpstreamDescriptor is the validated, configuration-supplied shape of one
// upstream MCP server (spec §3/§6).
type UpstreamDescriptor struct {
	Name string        `json:"-"`
	Type TransportKind `json:"type,omitempty"`

	// stdio
	Command       string            `json:"command,omitempty"`
	Args          []string          `json:"args,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	Cwd           string            `json:"cwd,omitempty"`
	RestartOnExit bool              `json:"restartOnExit,omitempty"`
	MaxRestarts   int               `json:"maxRestarts,omitempty"`
	RestartDelay  time.Duration     `json:"restartDelay,omitempty"`

	// http/sse
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// common
	Tags              []string      `json:"tags,omitempty"`
	Disabled          bool          `json:"disabled,omitempty"`
	Timeout           time.Duration `json:"timeout,omitempty"`
	ConnectionTimeout time.Duration `json:"connectionTimeout,omitempty"`
	RequestTimeout    time.Duration `json:"requestTimeout,omitempty"`

	// IsTemplate marks descriptors sourced from mcpTemplates rather than
	// mcpServers; a static entry sharing its name loses (spec §4.6).
	IsTemplate bool `json:"-"`

	// OAuthProvider is the optional OAuth provider reference for an http/sse
	// upstream (spec §3); when set, a 401 from this upstream triggers a
	// credential refresh and transport recreation instead of a bare
	// Disconnected error (spec §4.1).
	OAuthProvider *OAuthProviderRef `json:"oauth,omitempty"`
}

// OAuthProviderRef names where the connection manager refreshes an
// http/sse upstream's credentials from, per spec §3's "optional OAuth
// provider reference". Issuing the initial grant is out of scope (spec
// §1/§9); only an already-issued refresh token is modeled here.
type OAuthProviderRef struct {
	Issuer        string `json:"issuer,omitempty"`
	TokenEndpoint string `json:"tokenEndpoint,omitempty"`
	ClientID      string `json:"clientId,omitempty"`
	RefreshToken  string `json:"refreshToken,omitempty"`
}

// EffectiveTimeout returns requestTimeout ?? timeout ?? 0 (spec §4.1).
func (d UpstreamDescriptor) EffectiveTimeout() time.Duration {
	if d.RequestTimeout > 0 {
		return d.RequestTimeout
	}
	return d.Timeout
}

// inferType fills Type from the keys present, when omitted.
func (d *UpstreamDescriptor) inferType() {
	if d.Type != "" {
		return
	}
	switch {
	case d.Command != "":
		d.Type = TransportStdio
	case d.URL != "":
		d.Type = TransportHTTP
	}
}

// Validate checks a descriptor against the upstream-descriptor schema,
// returning a KindConfigInvalid error naming the first problem found.
func (d *UpstreamDescriptor) Validate() error {
	d.inferType()
	if !nameRE.MatchString(d.Name) {
		return mcperr.New(mcperr.KindConfigInvalid, "upstream %q: name must match %s", d.Name, nameRE.String())
	}
	switch d.Type {
	case TransportStdio:
		if d.Command == "" {
			return mcperr.New(mcperr.KindConfigInvalid, "upstream %q: stdio transport requires command", d.Name)
		}
	case TransportHTTP, TransportSSE:
		if d.URL == "" {
			return mcperr.New(mcperr.KindConfigInvalid, "upstream %q: %s transport requires url", d.Name, d.Type)
		}
	default:
		return mcperr.New(mcperr.KindConfigInvalid, "upstream %q: cannot infer transport type, no command or url", d.Name)
	}
	return nil
}

// TransportFieldsEqual reports whether two descriptors differ only in
// cosmetic fields (tags, disabled flag), meaning the connection manager can
// skip transport recreation on reload (spec §4.6).
func TransportFieldsEqual(a, b UpstreamDescriptor) bool {
	if a.Type != b.Type || a.Command != b.Command || a.Cwd != b.Cwd || a.URL != b.URL {
		return false
	}
	if len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if a.Args[i] != b.Args[i] {
			return false
		}
	}
	if !stringMapEqual(a.Env, b.Env) || !stringMapEqual(a.Headers, b.Headers) {
		return false
	}
	if !oauthProviderEqual(a.OAuthProvider, b.OAuthProvider) {
		return false
	}
	return a.RestartOnExit == b.RestartOnExit &&
		a.MaxRestarts == b.MaxRestarts &&
		a.RestartDelay == b.RestartDelay &&
		a.Timeout == b.Timeout &&
		a.ConnectionTimeout == b.ConnectionTimeout &&
		a.RequestTimeout == b.RequestTimeout
}

func oauthProviderEqual(a, b *OAuthProviderRef) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return *a == *b
}

func stringMapEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
