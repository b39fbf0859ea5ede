package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/turtle/internal/carry"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/metrics"
	"github.com/roach88/turtle/internal/server"
	"github.com/roach88/turtle/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr          string
	Database      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CarryTTL      time.Duration
	Metrics       bool
	ShutdownGrace time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve levels and grading over HTTP",
		Long: `Start an HTTP server that lists levels and grades programs.

Routes:
  GET  /health
  GET  /levels
  GET  /levels/{id}/
  GET  /levels/{id}/start?session_id=...
  POST /levels/{id}/run
  POST /levels/{id}/render
  GET  /metrics                (with --metrics)

Programs carried between levels are kept in Redis when --redis is set,
otherwise in memory. Attempts are recorded when --db is set.

Examples:
  turtle serve --addr :8080
  turtle serve --db ./turtle.db --redis localhost:6379 --metrics`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record attempts in this SQLite database")
	cmd.Flags().StringVar(&opts.RedisAddr, "redis", "", "Redis address for carried programs (default: in memory)")
	cmd.Flags().StringVar(&opts.RedisPassword, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&opts.RedisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().DurationVar(&opts.CarryTTL, "carry-ttl", 0, "expire carried programs after this long (0 keeps them)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "expose Prometheus metrics at /metrics")
	cmd.Flags().DurationVar(&opts.ShutdownGrace, "shutdown-grace", 10*time.Second, "time allowed for in-flight requests on shutdown")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	f := opts.formatter(cmd)
	logger := serveLogger(opts.RootOptions, cmd)
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pack, err := loadPack(opts.RootOptions, f)
	if err != nil {
		return err
	}
	srv, closeAll, err := buildServer(ctx, opts, pack, logger)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to start server", err)
	}
	defer closeAll()

	httpServer := &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.Addr, "levels", pack.Len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return f.fail(ExitCommandError, ErrCodeGeneric, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return f.fail(ExitCommandError, ErrCodeGeneric, "shutdown failed", err)
	}
	return nil
}

// serveLogger logs at info unless --verbose asks for debug.
func serveLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// buildServer wires the attempt store, carry store and metrics into a
// server. The returned func releases them.
func buildServer(ctx context.Context, opts *ServeOptions, pack *level.Pack, logger *slog.Logger) (*server.Server, func(), error) {
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("error closing resource", "error", err)
			}
		}
	}

	srvOpts := []server.Option{server.WithLogger(logger)}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("opening attempt store: %w", err)
		}
		closers = append(closers, st.Close)
		srvOpts = append(srvOpts, server.WithReporter(st), server.WithAttemptLog(st))
	}

	if opts.RedisAddr != "" {
		var carryOpts []carry.Option
		if opts.CarryTTL > 0 {
			carryOpts = append(carryOpts, carry.WithTTL(opts.CarryTTL))
		}
		rc := carry.NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, carryOpts...)
		closers = append(closers, rc.Close)
		if err := rc.Ping(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", opts.RedisAddr, err)
		}
		srvOpts = append(srvOpts, server.WithCarryStore(rc))
	}

	if opts.Metrics {
		m := metrics.New()
		srvOpts = append(srvOpts,
			server.WithReporter(m),
			server.WithObserver(m),
			server.WithMetricsHandler(m.Handler()))
	}

	return server.New(pack, srvOpts...), closeAll, nil
}
