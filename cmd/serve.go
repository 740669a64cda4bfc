package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcpmux/internal/configwatch"
	"mcpmux/internal/inbound"
	"mcpmux/internal/inboundserver"
	"mcpmux/internal/lazyload"
	"mcpmux/internal/pidfile"
	"mcpmux/internal/router"
	"mcpmux/internal/upstream"
	"mcpmux/pkg/logging"
	"mcpmux/pkg/mcperr"
)

const selfName = "mcpmux"

var (
	serveDebug             bool
	serveYolo              bool
	serveConfigPath        string
	serveConfigDir         string
	serveHost              string
	servePort              int
	serveTransport         string
	serveLazyMode          string
	serveDebounce          time.Duration
	servePrintCapabilities bool
)

// serveCmd starts the aggregator: connects upstreams per the configuration
// file, watches it for changes, and exposes the merged capability set
// through one inbound transport.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP aggregator server",
	Long: `serve connects to every upstream MCP server named in the configuration
file, merges their tools, resources, and prompts under namespaced ids, and
exposes the result through a single inbound MCP endpoint.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "enable debug logging")
	serveCmd.Flags().BoolVar(&serveYolo, "yolo", false, "disable the destructive-tool denylist (use with caution)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", envOr("ONE_MCP_CONFIG", "mcpmux.json"), "path to the configuration file")
	serveCmd.Flags().StringVar(&serveConfigDir, "config-dir", envOr("ONE_MCP_CONFIG_DIR", "."), "directory for the PID file and other runtime state")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "host to bind the HTTP/SSE transport to")
	serveCmd.Flags().IntVar(&servePort, "port", 8090, "port to bind the HTTP/SSE transport to")
	serveCmd.Flags().StringVar(&serveTransport, "transport", "streamable-http", "inbound transport: stdio, streamable-http, or sse")
	serveCmd.Flags().StringVar(&serveLazyMode, "lazy-mode", "full", "lazy-loading mode: full, metatool, or hybrid")
	serveCmd.Flags().DurationVar(&serveDebounce, "debounce", 300*time.Millisecond, "config file change debounce")
	serveCmd.Flags().BoolVar(&servePrintCapabilities, "print-capabilities", false, "print a capability summary table on startup")
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func runServe(cmd *cobra.Command, args []string) error {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	if v := os.Getenv("ONE_MCP_LOG_LEVEL"); v != "" {
		level = logging.ParseLevel(v)
	}
	logging.InitForCLI(level, cmd.ErrOrStderr())

	rootCtx := cmd.Context()
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	watcher, err := configwatch.NewWatcher(serveConfigPath, configwatch.LoadOptions{EnvSubstitution: true}, serveDebounce)
	if err != nil {
		return mcperr.Wrap(mcperr.KindFatal, err, "loading configuration")
	}

	manager := upstream.NewManager(selfName)
	manager.CreateAll(ctx, watcher.Current().Servers)

	mode, err := parseLazyMode(serveLazyMode)
	if err != nil {
		return mcperr.Wrap(mcperr.KindFatal, err, "parsing --lazy-mode")
	}
	orch := lazyload.NewOrchestrator(mode, manager, lazyload.NewSchemaCache(256, 5*time.Minute))

	rt := router.New(manager, orch)
	rt.Denylist.Yolo = serveYolo
	rt.RebuildIndex(ctx)

	srv := inboundserver.NewServer(rt, selfName, GetVersion())
	srv.Sync(ctx)

	if servePrintCapabilities {
		rt.PrintCapabilities(cmd.OutOrStdout())
	}

	go watchConfig(ctx, watcher, manager, rt, srv)

	if serveTransport == "stdio" {
		return runServeStdio(ctx, srv)
	}
	return runServeHTTP(ctx, srv)
}

func parseLazyMode(s string) (lazyload.Mode, error) {
	switch s {
	case "", "full":
		return lazyload.ModeFull, nil
	case "metatool":
		return lazyload.ModeMetatool, nil
	case "hybrid":
		return lazyload.ModeHybrid, nil
	default:
		return lazyload.ModeFull, fmt.Errorf("unknown lazy-mode %q (want full, metatool, or hybrid)", s)
	}
}

// watchConfig applies every successfully-validated config reload to the
// connection manager and rebuilds the capability index + inbound
// registrations, per spec §4.6's "recreates transports, then
// setupCapabilities" sequence.
func watchConfig(ctx context.Context, watcher *configwatch.Watcher, manager *upstream.Manager, rt *router.Router, srv *inboundserver.Server) {
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logging.Error("serve", err, "config watcher stopped")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-watcher.Events():
			manager.Reload(ctx, ev.Config.Servers)
			rt.RebuildIndex(ctx)
			srv.Sync(ctx)
			logging.Info("serve", "config reloaded: %d added, %d removed, %d modified",
				len(ev.Diff.Added), len(ev.Diff.Removed), len(ev.Diff.Modified))
		}
	}
}

func runServeStdio(ctx context.Context, srv *inboundserver.Server) error {
	logging.Info("serve", "starting stdio transport")
	if err := srv.StdioListen(ctx); err != nil {
		return mcperr.Wrap(mcperr.KindFatal, err, "stdio transport")
	}
	return nil
}

func runServeHTTP(ctx context.Context, srv *inboundserver.Server) error {
	addr := fmt.Sprintf("%s:%d", serveHost, servePort)

	var httpSrv *inbound.HTTPServer
	var err error
	if serveTransport == "sse" {
		httpSrv, err = inbound.ServeHTTP(addr, srv.SSEHandler(fmt.Sprintf("http://%s", addr)))
	} else {
		httpSrv, err = inbound.ServeHTTP(addr, srv.StreamableHTTPHandler())
	}
	if err != nil {
		return mcperr.Wrap(mcperr.KindFatal, err, "starting %s transport on %s", serveTransport, addr)
	}

	if err := pidfile.Write(serveConfigDir, pidfile.Info{
		PID:       os.Getpid(),
		URL:       fmt.Sprintf("http://%s/mcp", addr),
		Port:      servePort,
		Host:      serveHost,
		Transport: serveTransport,
		StartedAt: time.Now().UTC(),
		ConfigDir: serveConfigDir,
	}); err != nil {
		logging.Warn("serve", "failed to write pid file: %v", err)
	}
	defer pidfile.Remove(serveConfigDir)

	logging.Info("serve", "listening on %s (%s)", addr, serveTransport)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case <-sigCh:
	case err := <-httpSrv.Errors():
		return mcperr.Wrap(mcperr.KindFatal, err, "transport error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
