package main

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

	"github.com/mattn/go-isatty"

	"github.com/portops/portsim/internal/cache"
	"github.com/portops/portsim/internal/cli"
	"github.com/portops/portsim/internal/config"
	"github.com/portops/portsim/internal/db"
	"github.com/portops/portsim/internal/events"
	"github.com/portops/portsim/internal/importer"
	"github.com/portops/portsim/internal/logging"
	"github.com/portops/portsim/internal/observability"
	"github.com/portops/portsim/internal/simulation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// PORTSIM_CONFIG names an explicit config file; otherwise portsim.yaml
	// is searched for in . and ~/.portsim.
	cfg, err := config.Load(config.Options{File: os.Getenv("PORTSIM_CONFIG")})
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(logger)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		// Spans go to stderr so stdout stays parseable.
		Writer: os.Stderr,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	metrics, err := observability.NewSimulationCollector(nil)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, metrics, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	database, err := db.OpenDB(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	uow := db.NewSQLiteUnitOfWork(database)

	sink := events.NewAsyncSink(events.NewLogSink(logger), cfg.Events.Buffer, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sink.Close(ctx); err != nil {
			logger.Warn("flushing events", "error", err, "dropped", sink.Dropped())
		}
	}()

	orch := simulation.NewOrchestrator(
		simulation.SQLiteStores(database),
		simulation.SQLiteStores,
		uow,
		simulation.Config{
			CacheTTL:      cfg.Cache.TTL,
			LatencyBudget: cfg.Simulation.LatencyBudget,
		},
		simulation.WithLogger(logger),
		simulation.WithObserver(simulation.NewLogUseCaseObserver(logger)),
		simulation.WithMetrics(metrics),
		simulation.WithEvents(sink),
		simulation.WithCache(cache.NewLRU(cfg.Cache.Size, cfg.Cache.TTL)),
	)

	app := &cli.App{
		Simulations: orch,
		Importer:    importer.New(uow, logger),
		Output:      defaultOutput(),
	}
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// defaultOutput prints tables to terminals and JSON to pipes and files.
func defaultOutput() cli.OutputFormat {
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return cli.OutputTable
	}
	return cli.OutputJSON
}

func serveMetrics(addr string, c *observability.SimulationCollector, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

// exitCode maps simulation error codes to distinct process exit codes.
func exitCode(err error) int {
	switch simulation.CodeOf(err) {
	case simulation.CodeNotFound:
		return 3
	case simulation.CodeInvalidScenario, simulation.CodeValidationFailure:
		return 2
	default:
		if errors.Is(err, importer.ErrInvalidDataset) {
			return 2
		}
		return 1
	}
}
