package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/transport"
)

const versionCheckTimeout = 5 * time.Second

// newVersionCmd prints the CLI's build version and, if a server is running
// at the given endpoint, the server's version from the MCP handshake.
func newVersionCmd() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI and, if reachable, the server version",
		Long: `Displays this binary's build version and, if an aggregator is reachable
at --endpoint, the server name/version obtained from the MCP initialize
handshake.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpmux version %s\n", rootCmd.Version)

			name, version, err := fetchServerVersion(endpoint)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nServer: (not running at %s)\n", endpoint)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nServer: %s (%s)\n", version, name)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "http://127.0.0.1:8090/mcp", "aggregator endpoint to query")
	return cmd
}

func fetchServerVersion(endpoint string) (name, version string, err error) {
	cl, err := transport.New(configwatch.UpstreamDescriptor{
		Name: "version-check",
		Type: configwatch.TransportHTTP,
		URL:  endpoint,
	})
	if err != nil {
		return "", "", err
	}
	defer cl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), versionCheckTimeout)
	defer cancel()

	result, err := cl.Start(ctx)
	if err != nil {
		return "", "", fmt.Errorf("connecting to %s: %w", endpoint, err)
	}
	return result.ServerInfo.Name, result.ServerInfo.Version, nil
}
