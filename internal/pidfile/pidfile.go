// Package pidfile implements the PID file and process-discovery mechanism
// of spec §4.8: the server writes it on startup so a later `proxy` command
// (stdio↔HTTP bridge) can find and reuse an already-running instance.
package pidfile

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"mcpmux/pkg/logging"
)

// Info is the PID file's JSON schema (spec §4.8).
type Info struct {
	PID       int       `json:"pid"`
	URL       string    `json:"url"`
	Port      int       `json:"port"`
	Host      string    `json:"host"`
	Transport string    `json:"transport"`
	StartedAt time.Time `json:"startedAt"`
	ConfigDir string    `json:"configDir"`
}

// fileName is fixed relative to the config directory, per spec §4.8.
const fileName = "server.pid"

// Path returns the PID file path for the given config directory.
func Path(configDir string) string {
	return filepath.Join(configDir, fileName)
}

// Write serializes info to <configDir>/server.pid. Called once at startup;
// the caller is responsible for calling Remove on clean shutdown.
func Write(configDir string, info Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pid file: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir %s: %w", configDir, err)
	}
	if err := os.WriteFile(Path(configDir), data, 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Remove deletes the PID file, ignoring a not-exist error (clean exit after
// a startup failure that never got as far as Write).
func Remove(configDir string) error {
	if err := os.Remove(Path(configDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// Read loads and parses the PID file at configDir, without checking
// liveness.
func Read(configDir string) (Info, error) {
	var info Info
	data, err := os.ReadFile(Path(configDir))
	if err != nil {
		return info, fmt.Errorf("read pid file: %w", err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("parse pid file: %w", err)
	}
	return info, nil
}

// IsAlive sends signal 0 to pid: this performs the kernel's existence and
// permission checks without actually signaling the process, the standard
// liveness probe for a process this one didn't fork itself.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Discover reads the PID file in configDir and confirms the process is
// still alive. If the PID file is missing, stale, or the process is dead,
// it falls back to a short port scan over scanPorts starting at host,
// the spec's "optionally port-scans a small range as fallback" behavior for
// a server that was started without ever writing (or after losing) its PID
// file.
func Discover(configDir, host string, scanPorts []int) (Info, error) {
	info, err := Read(configDir)
	if err == nil && IsAlive(info.PID) {
		return info, nil
	}

	for _, port := range scanPorts {
		addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
		conn, dialErr := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if dialErr != nil {
			continue
		}
		conn.Close()
		logging.Debug("PIDFile", "discovered a listener on %s via port scan (pid file stale or absent)", addr)
		return Info{
			PID:       0,
			URL:       fmt.Sprintf("http://%s/mcp", addr),
			Port:      port,
			Host:      host,
			Transport: "http",
			StartedAt: time.Time{},
			ConfigDir: configDir,
		}, nil
	}

	return Info{}, fmt.Errorf("no running server found for config dir %s", configDir)
}
