package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ruralpay/ledgersim/internal/config"
	"github.com/ruralpay/ledgersim/internal/database"
	"github.com/ruralpay/ledgersim/internal/export"
	"github.com/ruralpay/ledgersim/internal/handlers"
	"github.com/ruralpay/ledgersim/internal/hsm"
	"github.com/ruralpay/ledgersim/internal/metrics"
	"github.com/ruralpay/ledgersim/internal/services"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := config.NewFlagSet(os.Args[0], os.Stderr)
	cfg, err := config.Load(fs, os.Args[1:])
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, config.ErrMissingRegistrationFile):
		fmt.Fprintln(os.Stderr, "Error: registrations filename not specified.")
		return 1
	case err != nil:
		fmt.Fprintf(os.Stderr, "Invalid option. Use --help to see usage. (%v)\n", err)
		return 1
	}

	// stdout and stderr carry the report; diagnostics are opt-in
	if !cfg.Diagnostics {
		log.SetOutput(io.Discard)
	}

	runID := uuid.New().String()
	log.Printf("[LEDGER] run %s starting", runID)

	directory, err := loadDirectory(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()
	presenter := handlers.NewTextPresenter(stdout, cfg.Verbose, cfg.BankName)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	ledgerMetrics := metrics.New(registry)

	sinks := services.MultiSink{presenter, ledgerMetrics}
	var audit *hsm.AuditLogger
	if cfg.AuditEnabled {
		audit = hsm.NewAuditLogger(runID, log.New(os.Stderr, "", log.LstdFlags))
		sinks = append(sinks, audit)
	}
	if cfg.Redis.Enabled {
		if rdb := database.InitRedis(cfg.Redis); rdb != nil {
			defer rdb.Close()
			sinks = append(sinks, database.NewRedisEventPublisher(rdb, cfg.Redis.EventsKey, runID))
		}
	}

	engine := services.NewTransactionService(directory,
		services.WithFeePolicy(cfg.Fees),
		services.WithHorizon(cfg.Horizon),
		services.WithCheckedBalance(cfg.Verbose),
		services.WithEventSink(sinks),
	)
	queries := services.NewQueryService(engine, cfg.HistoryLimit)
	commands := handlers.NewCommandHandler(engine, queries, presenter, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.Run(ctx, os.Stdin); err != nil {
		stdout.Flush()
		if audit != nil {
			audit.LogError("", err)
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if cfg.HTTPAddr != "" {
		engine.EnterQueryMode()
	}
	stdout.Flush()

	if err := exportRun(ctx, cfg, runID, engine); err != nil {
		log.Printf("[EXPORT] %v", err)
		return 1
	}

	if cfg.HTTPAddr != "" {
		iso := services.NewISO20022Service(cfg.Currency, "")
		router := handlers.NewQueryHandler(queries, iso).Routes(ledgerMetrics.Handler(), cfg.JWTSecret)
		if err := serve(ctx, cfg.HTTPAddr, router); err != nil {
			log.Printf("Server failed: %v", err)
			return 1
		}
	}
	return 0
}

func loadDirectory(cfg *config.Config) (*services.UserDirectory, error) {
	f, err := os.Open(cfg.RegistrationFile)
	if err != nil {
		return nil, fmt.Errorf("Error: Could not open registration file %s", cfg.RegistrationFile)
	}
	defer f.Close()

	records, err := services.ParseRegistrations(f)
	if err != nil {
		return nil, err
	}

	directory := services.NewUserDirectory(hsm.NewPinVault(cfg.Argon2))
	if err := directory.Import(records); err != nil {
		return nil, err
	}
	log.Printf("[LEDGER] %d accounts imported from %s", directory.Len(), cfg.RegistrationFile)
	return directory, nil
}

func exportRun(ctx context.Context, cfg *config.Config, runID string, engine *services.TransactionService) error {
	if cfg.ExportPath != "" {
		if err := export.Write(cfg.ExportPath, export.NewSnapshot(runID, cfg.BankName, engine)); err != nil {
			return fmt.Errorf("snapshot %s: %w", cfg.ExportPath, err)
		}
		log.Printf("[EXPORT] snapshot written to %s", cfg.ExportPath)
	}

	if cfg.Database.Enabled {
		db, err := database.InitDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.NewLedgerExporter(db).Export(ctx, runID, engine.Ledger().Entries()); err != nil {
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Query server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
