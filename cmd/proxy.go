package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/inboundserver"
	"mcpmux/internal/lazyload"
	"mcpmux/internal/pidfile"
	"mcpmux/internal/router"
	"mcpmux/internal/upstream"
	"mcpmux/pkg/logging"
	"mcpmux/pkg/mcperr"
)

var (
	proxyConfigDir string
	proxyScanPorts []int
	proxyScanHost  string
)

// proxyCmd bridges a stdio-speaking MCP client (an IDE, typically) to an
// already-running `serve` instance discovered via its PID file, per spec
// §4.8. It re-exposes the running aggregator's full capability set over
// stdio without a second copy of the upstream fleet.
var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Bridge a stdio MCP client to an already-running aggregator",
	Long: `proxy discovers a running "serve" instance via its PID file (falling back
to a short port scan if the PID file is stale or missing), then exposes that
instance's tools, resources, and prompts to a stdio-speaking client such as
an IDE's MCP integration.`,
	Args: cobra.NoArgs,
	RunE: runProxy,
}

func init() {
	rootCmd.AddCommand(proxyCmd)

	proxyCmd.Flags().StringVar(&proxyConfigDir, "config-dir", envOr("ONE_MCP_CONFIG_DIR", "."), "directory holding the server's PID file")
	proxyCmd.Flags().StringVar(&proxyScanHost, "scan-host", "127.0.0.1", "host to port-scan when the PID file is stale")
	proxyCmd.Flags().IntSliceVar(&proxyScanPorts, "scan-ports", []int{8090, 8091, 8092}, "ports to try when the PID file is stale")
}

func runProxy(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logging.LevelInfo, cmd.ErrOrStderr())

	info, err := pidfile.Discover(proxyConfigDir, proxyScanHost, proxyScanPorts)
	if err != nil {
		return mcperr.Wrap(mcperr.KindFatal, err, "discovering a running server")
	}
	logging.Info("proxy", "bridging stdio to %s", info.URL)

	manager := upstream.NewManager(selfName)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	manager.CreateAll(ctx, map[string]configwatch.UpstreamDescriptor{
		"upstream": {Name: "upstream", Type: configwatch.TransportHTTP, URL: info.URL},
	})

	conn, err := manager.Get("upstream")
	if err != nil || conn.Status() != upstream.StatusConnected {
		return mcperr.New(mcperr.KindFatal, "could not connect to discovered server at %s", info.URL)
	}

	orch := lazyload.NewOrchestrator(lazyload.ModeFull, manager, lazyload.NewSchemaCache(64, time.Minute))
	rt := router.New(manager, orch)
	rt.RebuildIndex(ctx)

	srv := inboundserver.NewServer(rt, selfName, GetVersion())
	srv.Sync(ctx)

	if err := srv.StdioListen(ctx); err != nil {
		return mcperr.Wrap(mcperr.KindFatal, err, "stdio bridge")
	}
	return nil
}
