package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"mcpmux/pkg/mcperr"
)

// Exit codes for CLI commands (spec §6: "0 = clean; non-zero = fatal startup
// failure").
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	ExitCodeFatal   = 2
)

// rootCmd is the base command for the aggregator binary.
var rootCmd = &cobra.Command{
	Use:   "mcpmux",
	Short: "Aggregate multiple MCP servers behind one MCP endpoint",
	Long: `mcpmux connects to a set of upstream MCP servers, merges their tools,
resources, and prompts under namespaced ids, and serves the result through a
single inbound MCP endpoint (stdio, streamable HTTP, or SSE).`,
	SilenceUsage: true,
}

// SetVersion sets the version reported by --version and the version command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the version injected via SetVersion.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command, translating a returned error's mcperr.Kind
// into a process exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpmux version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error's mcperr.Kind to a process exit code.
// KindFatal marks an unrecoverable startup failure (config invalid, port
// bind failed); everything else is a general command failure.
func getExitCode(err error) int {
	if mcperr.KindOf(err) == mcperr.KindFatal {
		return ExitCodeFatal
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
