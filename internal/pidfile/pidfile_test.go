package pidfile

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := Info{
		PID:       os.Getpid(),
		URL:       "http://127.0.0.1:8080/mcp",
		Port:      8080,
		Host:      "127.0.0.1",
		Transport: "http",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		ConfigDir: dir,
	}

	require.NoError(t, Write(dir, want))

	got, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, want.PID, got.PID)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Transport, got.Transport)
	assert.True(t, want.StartedAt.Equal(got.StartedAt))
}

func TestRemove_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, Remove(dir))
}

func TestRemove_DeletesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Info{PID: os.Getpid()}))

	require.NoError(t, Remove(dir))
	_, err := os.Stat(Path(dir))
	assert.True(t, os.IsNotExist(err))
}

func TestRead_MissingFileIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(dir)
	assert.Error(t, err)
}

func TestIsAlive_CurrentProcessIsAlive(t *testing.T) {
	assert.True(t, IsAlive(os.Getpid()))
}

func TestIsAlive_ZeroOrNegativePIDIsNotAlive(t *testing.T) {
	assert.False(t, IsAlive(0))
	assert.False(t, IsAlive(-1))
}

func TestIsAlive_UnusedHighPIDIsNotAlive(t *testing.T) {
	// PID 1 is always alive (init); a PID far beyond any plausible live
	// process on a test runner is our best stand-in for "definitely dead".
	assert.False(t, IsAlive(1<<30))
}

func TestDiscover_PrefersLivePIDFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Info{
		PID:       os.Getpid(),
		URL:       "http://127.0.0.1:9999/mcp",
		Transport: "http",
	}))

	info, err := Discover(dir, "127.0.0.1", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9999/mcp", info.URL)
}

func TestDiscover_FallsBackToPortScanWhenPIDFileStale(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Info{PID: 1 << 30}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	info, err := Discover(dir, "127.0.0.1", []int{port})
	require.NoError(t, err)
	assert.Equal(t, port, info.Port)
}

func TestDiscover_NoCandidatesIsError(t *testing.T) {
	dir := t.TempDir()
	_, err := Discover(dir, "127.0.0.1", nil)
	assert.Error(t, err)
}
