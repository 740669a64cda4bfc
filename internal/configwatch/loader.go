package configwatch

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"mcpmux/pkg/logging"
	"mcpmux/pkg/mcperr"
)

// Config is the parsed, validated configuration file (spec §6).
type Config struct {
	Servers map[string]UpstreamDescriptor
}

// rawDescriptor mirrors UpstreamDescriptor but with duration fields typed as
// strings/numbers the way they appear in JSON, since time.Duration does not
// unmarshal from "5s" on its own.
type rawDescriptor struct {
	Type              string            `json:"type"`
	Command           string            `json:"command"`
	Args              []string          `json:"args"`
	Env               map[string]string `json:"env"`
	Cwd               string            `json:"cwd"`
	RestartOnExit     bool              `json:"restartOnExit"`
	MaxRestarts       int               `json:"maxRestarts"`
	RestartDelay      json.RawMessage   `json:"restartDelay"`
	URL               string            `json:"url"`
	Headers           map[string]string `json:"headers"`
	Tags              []string          `json:"tags"`
	Disabled          bool              `json:"disabled"`
	Timeout           json.RawMessage   `json:"timeout"`
	ConnectionTimeout json.RawMessage   `json:"connectionTimeout"`
	RequestTimeout    json.RawMessage   `json:"requestTimeout"`
	OAuth             *OAuthProviderRef `json:"oauth"`
}

type rawFile struct {
	Schema       string                    `json:"$schema"`
	MCPServers   map[string]rawDescriptor  `json:"mcpServers"`
	MCPTemplates map[string]rawDescriptor  `json:"mcpTemplates"`
}

var envVarRE = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnv replaces every ${NAME} occurrence with the value of the
// process environment variable NAME, leaving unset vars as an empty string.
func substituteEnv(raw []byte) []byte {
	return envVarRE.ReplaceAllFunc(raw, func(m []byte) []byte {
		name := envVarRE.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func parseDuration(raw json.RawMessage) (time.Duration, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return time.ParseDuration(s)
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("duration must be a string (\"5s\") or a number of milliseconds")
}

func (r rawDescriptor) toDescriptor(name string, isTemplate bool) (UpstreamDescriptor, error) {
	restartDelay, err := parseDuration(r.RestartDelay)
	if err != nil {
		return UpstreamDescriptor{}, fmt.Errorf("restartDelay: %w", err)
	}
	timeout, err := parseDuration(r.Timeout)
	if err != nil {
		return UpstreamDescriptor{}, fmt.Errorf("timeout: %w", err)
	}
	connTimeout, err := parseDuration(r.ConnectionTimeout)
	if err != nil {
		return UpstreamDescriptor{}, fmt.Errorf("connectionTimeout: %w", err)
	}
	reqTimeout, err := parseDuration(r.RequestTimeout)
	if err != nil {
		return UpstreamDescriptor{}, fmt.Errorf("requestTimeout: %w", err)
	}
	return UpstreamDescriptor{
		Name:              name,
		Type:              TransportKind(r.Type),
		Command:           r.Command,
		Args:              r.Args,
		Env:               r.Env,
		Cwd:               r.Cwd,
		RestartOnExit:     r.RestartOnExit,
		MaxRestarts:       r.MaxRestarts,
		RestartDelay:      restartDelay,
		URL:               r.URL,
		Headers:           r.Headers,
		Tags:              r.Tags,
		Disabled:          r.Disabled,
		Timeout:           timeout,
		ConnectionTimeout: connTimeout,
		RequestTimeout:    reqTimeout,
		IsTemplate:        isTemplate,
		OAuthProvider:     r.OAuth,
	}, nil
}

// LoadOptions controls Load's behavior.
type LoadOptions struct {
	EnvSubstitution bool
}

// Load reads, optionally env-substitutes, JSON-decodes and validates the
// config file at path. Entries failing validation are logged and skipped
// rather than failing the whole load (spec §4.6). Template and static
// entries sharing a name: the static entry loses and is dropped with a
// warning.
func Load(path string, opts LoadOptions) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, mcperr.Wrap(mcperr.KindConfigInvalid, err, "reading config file %s", path)
	}
	if opts.EnvSubstitution {
		raw = substituteEnv(raw)
	}
	var file rawFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, mcperr.Wrap(mcperr.KindConfigInvalid, err, "parsing config file %s", path)
	}

	servers := make(map[string]UpstreamDescriptor)

	for name, rd := range file.MCPServers {
		d, err := rd.toDescriptor(name, false)
		if err != nil {
			logging.Warn("configwatch", "server %q: %v, skipping", name, err)
			continue
		}
		if err := d.Validate(); err != nil {
			logging.Warn("configwatch", "server %q: %v, skipping", name, err)
			continue
		}
		servers[name] = d
	}

	for name, rd := range file.MCPTemplates {
		d, err := rd.toDescriptor(name, true)
		if err != nil {
			logging.Warn("configwatch", "template %q: %v, skipping", name, err)
			continue
		}
		if err := d.Validate(); err != nil {
			logging.Warn("configwatch", "template %q: %v, skipping", name, err)
			continue
		}
		if existing, ok := servers[name]; ok && !existing.IsTemplate {
			logging.Warn("configwatch", "template %q shares its name with a static server; static entry dropped", name)
		}
		servers[name] = d
	}

	return &Config{Servers: servers}, nil
}
