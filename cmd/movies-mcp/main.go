// Command movies-mcp serves TMDB movie lookups as MCP tools over stdio or
// HTTP with SSE sessions.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"movies-mcp/internal/config"
	"movies-mcp/internal/dispatch"
	"movies-mcp/internal/logging"
	"movies-mcp/internal/metrics"
	"movies-mcp/internal/server"
	"movies-mcp/internal/tmdb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	sse     bool
	port    string
	envFile string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "movies-mcp",
		Short:        "MCP server exposing TMDB movie lookups",
		Version:      server.ServerVersion,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.sse, "sse", false, "serve over HTTP with SSE sessions instead of stdio")
	cmd.Flags().StringVar(&opts.port, "port", "", "HTTP port in --sse mode (overrides PORT)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "read environment from this file instead of .env")
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.port != "" {
		cfg.Port = opts.port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.TMDBAPIKey == "" {
		logger.Warn().Msg("TMDB_API_KEY not set; upstream requests will be rejected")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	client := tmdb.New(cfg.TMDBBaseURL, cfg.TMDBAPIKey, &http.Client{Timeout: cfg.TMDBTimeout})
	d := dispatch.New(client, dispatch.WithLogger(logger), dispatch.WithMetrics(m))

	if opts.sse {
		return runHTTP(ctx, cfg, d, m, logger)
	}
	err = server.ServeStdio(ctx, server.NewProtocol(d), os.Stdin, os.Stdout, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("stdio transport failed")
	}
	return err
}

func runHTTP(ctx context.Context, cfg config.Config, d *dispatch.Dispatcher, m *metrics.Metrics, logger zerolog.Logger) error {
	if cfg.Token == "" {
		logger.Warn().Msg("MCP_TOKEN not set; endpoints will be open")
	}
	srv := server.New(server.Config{Token: cfg.Token, CORSOrigins: cfg.CORSOrigins}, d, m, logger)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpSrv.Addr).Bool("tls", cfg.TLS()).Msg("starting MCP HTTP server")
		if cfg.TLS() {
			errCh <- httpSrv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
