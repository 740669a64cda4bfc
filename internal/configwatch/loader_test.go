package configwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_BasicStdioAndHTTP(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"mcpServers": {
			"alpha": {"command": "alpha-server", "args": ["--flag"], "tags": ["web"]},
			"beta": {"url": "https://example.com/mcp", "type": "http"}
		}
	}`)

	cfg, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 2)
	assert.Equal(t, TransportStdio, cfg.Servers["alpha"].Type)
	assert.Equal(t, TransportHTTP, cfg.Servers["beta"].Type)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	os.Setenv("MCPMUX_TEST_TOKEN", "secret-value")
	defer os.Unsetenv("MCPMUX_TEST_TOKEN")

	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"mcpServers": {
			"alpha": {"url": "https://example.com", "headers": {"Authorization": "Bearer ${MCPMUX_TEST_TOKEN}"}}
		}
	}`)

	cfg, err := Load(path, LoadOptions{EnvSubstitution: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-value", cfg.Servers["alpha"].Headers["Authorization"])
}

func TestLoad_InvalidEntrySkipped(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"mcpServers": {
			"good": {"command": "good-server"},
			"bad-no-transport": {"tags": ["x"]}
		}
	}`)

	cfg, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 1)
	_, ok := cfg.Servers["bad-no-transport"]
	assert.False(t, ok)
}

func TestLoad_TemplateWinsOverStatic(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		"mcpServers": {"shared": {"command": "static-cmd"}},
		"mcpTemplates": {"shared": {"command": "template-cmd"}}
	}`)

	cfg, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	require.Contains(t, cfg.Servers, "shared")
	assert.True(t, cfg.Servers["shared"].IsTemplate)
	assert.Equal(t, "template-cmd", cfg.Servers["shared"].Command)
}

func TestUpstreamDescriptor_Validate_BadName(t *testing.T) {
	d := UpstreamDescriptor{Name: "1bad-name", Command: "x"}
	assert.Error(t, d.Validate())
}

func TestUpstreamDescriptor_EffectiveTimeout(t *testing.T) {
	d := UpstreamDescriptor{}
	assert.Equal(t, time.Duration(0), d.EffectiveTimeout())
}
