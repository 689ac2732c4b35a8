package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/usestring/netquery-mcp/internal/config"
	"github.com/usestring/netquery-mcp/internal/metrics"
	"github.com/usestring/netquery-mcp/pkg/mcpsrv"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		metricsAddr string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Runs the MCP server on stdio with all builtin tools, prompts and resources.

Configuration is loaded from environment variables:
  LOG_LEVEL, LOG_FILE, LOG_FORMAT   logging (default: info, stderr, text)
  NETQUERY_BASE_URL                 netquery API base URL
  SEARCH_DEBOUNCE_MS                quiet period before a search runs (default: 1000)
  STORE_REQUEST_TIMEOUT_MS          bound on each search cycle (default: 15000)
  (see internal/config for all options)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			store, err := openStore(flags, cfg)
			if err != nil {
				return err
			}

			opts := []mcpsrv.Option{}
			if flags.logLevel != "" {
				opts = append(opts, mcpsrv.WithLogLevel(flags.logLevel))
			}
			if debounce > 0 {
				opts = append(opts, mcpsrv.WithDebounce(debounce))
			}

			server, err := mcpsrv.NewServer(store, opts...)
			if err != nil {
				slog.Error("failed to create MCP server", "error", err)
				return err
			}
			defer server.Close()

			if metricsAddr != "" {
				go serveMetrics(ctx, metricsAddr)
			}

			// Run the server with stdio transport
			slog.Info("starting netquery MCP server on stdio")
			if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("server error", "error", err)
				return err
			}

			slog.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9817")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a search runs (default $SEARCH_DEBOUNCE_MS or 1s)")
	return cmd
}

// serveMetrics exposes /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server error", "error", err)
	}
}
