package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres stdlib driver, used for migrations.
	"github.com/rschio/bank/internal/core/audit"
	"github.com/rschio/bank/internal/core/audit/store/auditdb"
	"github.com/rschio/bank/internal/core/audit/store/auditfile"
	"github.com/rschio/bank/internal/core/bank"
	"github.com/rschio/bank/internal/core/bank/store/bankmem"
	"github.com/rschio/bank/internal/core/ledger"
	"github.com/rschio/bank/internal/data/dbschema"
	db "github.com/rschio/bank/internal/data/dbsql/pgx"
	"github.com/rschio/bank/internal/handlers"
	"github.com/rschio/bank/internal/logger"
	"github.com/rschio/bank/internal/metrics"
	"github.com/rschio/bank/internal/money"
	"github.com/rschio/bank/internal/trace"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "BANK")

	if err := run(log); err != nil {
		log.Error("startup", "ERROR", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Env string `conf:"default:DEV"`
		Web struct {
			Port            int           `conf:"default:8080"`
			DebugPort       int           `conf:"default:4000"`
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
		}
		Ledger struct {
			Timezone string `conf:"default:Local"`
		}
		Checking struct {
			OverdraftLimit       string `conf:"default:500.00"`
			MaxDailyWithdrawals  int    `conf:"default:3"`
			MaxDailyTransactions int    `conf:"default:10"`
		}
		Audit struct {
			File string `conf:"default:audit.log"`
			DB   bool   `conf:"default:false"`
		}
		DB struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,mask"`
			Host       string `conf:"default:0.0.0.0:5432"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		Tempo struct {
			Host        string
			Probability float64 `conf:"default:0.05"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "single branch banking ledger",
		},
	}

	const prefix = "BANK"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Info("starting service", "version", build)
	defer log.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Info("startup", "config", out)

	loc, err := time.LoadLocation(cfg.Ledger.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	overdraft, err := money.Parse(cfg.Checking.OverdraftLimit)
	if err != nil {
		return fmt.Errorf("parsing overdraft limit: %w", err)
	}

	// =========================================================================
	// Tracing Support

	log.Info("startup", "status", "initializing tracing support", "host", cfg.Tempo.Host)

	provider, err := trace.NewProvider(ctx, trace.Config{
		Env:            cfg.Env,
		Endpoint:       cfg.Tempo.Host,
		Service:        "bank",
		Version:        build,
		SampleFraction: cfg.Tempo.Probability,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer provider.Shutdown(context.Background())

	tracer := provider.Tracer("bank")

	// =========================================================================
	// Audit Support

	var journal audit.Journal
	switch {
	case cfg.Audit.DB:
		log.Info("startup", "status", "initializing database support", "host", cfg.DB.Host)

		dbCfg := db.Config{
			User:       cfg.DB.User,
			Password:   cfg.DB.Password,
			Host:       cfg.DB.Host,
			Name:       cfg.DB.Name,
			DisableTLS: cfg.DB.DisableTLS,
		}
		database, err := db.Open(ctx, dbCfg)
		if err != nil {
			return fmt.Errorf("connecting to db: %w", err)
		}
		defer func() {
			log.Info("shutdown", "status", "stopping database support", "host", cfg.DB.Host)
			database.Close()
		}()

		ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := db.StatusCheck(ctxWithTimeout, database); err != nil {
			return fmt.Errorf("database not health: %w", err)
		}

		if err := migrate(dbCfg); err != nil {
			return err
		}

		journal = auditdb.NewStore(log, database)

	case cfg.Audit.File != "":
		log.Info("startup", "status", "initializing audit file", "path", cfg.Audit.File)

		j, closeFile, err := auditfile.Open(cfg.Audit.File)
		if err != nil {
			return fmt.Errorf("opening audit file: %w", err)
		}
		defer closeFile()

		journal = j
	}

	// =========================================================================
	// Start Debug Service

	m := metrics.New()

	debug := http.Server{
		Addr:     fmt.Sprintf(":%d", cfg.Web.DebugPort),
		Handler:  handlers.DebugMux(m),
		ErrorLog: slog.NewLogLogger(log.Handler(), slog.LevelInfo),
	}

	go func() {
		log.Info("startup", "status", "debug router started", "host", debug.Addr)
		if err := debug.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("shutdown", "status", "debug router closed", "host", debug.Addr, "ERROR", err)
		}
	}()
	defer debug.Close()

	// =========================================================================
	// Start API Service

	log.Info("startup", "status", "initializing BANK API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	core := bank.NewCore(log, bankmem.NewStore(),
		bank.WithJournal(journal),
		bank.WithMetrics(m),
		bank.WithLocation(loc),
		bank.WithCheckingOptions(
			ledger.WithOverdraftLimit(overdraft),
			ledger.WithMaxDailyWithdrawals(cfg.Checking.MaxDailyWithdrawals),
			ledger.WithMaxDailyTransactions(cfg.Checking.MaxDailyTransactions),
		),
	)
	srv := handlers.NewServer(log, core)

	api := http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:      handlers.APIMux(srv, tracer),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelInfo),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

func migrate(cfg db.Config) error {
	stdDB, err := sql.Open("pgx", db.ConnString(cfg))
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}
	defer stdDB.Close()

	if err := dbschema.Migrate(stdDB); err != nil {
		return fmt.Errorf("migrating error: %w", err)
	}
	return nil
}
