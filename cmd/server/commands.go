package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"biodivscope-backend-go/internal/config"
	"biodivscope-backend-go/internal/db"
	"biodivscope-backend-go/internal/geocode"
	httpapi "biodivscope-backend-go/internal/http"
	"biodivscope-backend-go/internal/importer"
	"biodivscope-backend-go/internal/mitigation"
	"biodivscope-backend-go/internal/schema"
	"biodivscope-backend-go/internal/services"
)

const shutdownTimeout = 5 * time.Second

func rootCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var setupFirst bool

	rootCmd := &cobra.Command{
		Use:           "server",
		Short:         "BiodivScope backend API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				logger.Error("invalid configuration", "error", err)
				return err
			}
			if cfg.UsesDefaultSecret() {
				logger.Warn("SECRET_KEY is not set, using the development default")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, logger, setupFirst)
		},
	}
	rootCmd.Flags().BoolVar(&setupFirst, "setup-db", false, "Create tables and indexes before serving")

	rootCmd.AddCommand(
		serveCommand(cfg, logger),
		setupDBCommand(cfg, logger),
		importCommand(cfg, logger),
	)
	return rootCmd
}

func serveCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var setupFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, logger, setupFirst)
		},
	}
	cmd.Flags().BoolVar(&setupFirst, "setup-db", false, "Create tables and indexes before serving")
	return cmd
}

func setupDBCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var withImport bool
	var csvPath string
	cmd := &cobra.Command{
		Use:   "setup-db",
		Short: "Create tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := setupSchema(cmd.Context(), database, logger); err != nil {
				return err
			}
			if !withImport {
				return nil
			}
			return runImport(cmd.Context(), cfg, database, logger, csvPath)
		},
	}
	cmd.Flags().BoolVar(&withImport, "with-import", false, "Import data after creating the schema")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Additional location of the IUCN CSV export")
	return cmd
}

func importCommand(cfg config.Config, logger *slog.Logger) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the IUCN export and sample datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer database.Close()
			return runImport(cmd.Context(), cfg, database, logger, csvPath)
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Additional location of the IUCN CSV export")
	return cmd
}

func openDatabase(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlx.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		return nil, fmt.Errorf("db: %w", err)
	}
	return database, nil
}

func setupSchema(ctx context.Context, database *sqlx.DB, logger *slog.Logger) error {
	report, err := schema.Setup(ctx, database, logger)
	if err != nil {
		logger.Error("database setup failed", "failed_steps", report.Failed())
		return err
	}
	logger.Info("database setup completed")
	return nil
}

func runImport(ctx context.Context, cfg config.Config, database *sqlx.DB, logger *slog.Logger, csvPath string) error {
	var extra []string
	for _, path := range []string{csvPath, cfg.IUCNCSVPath} {
		if path != "" {
			extra = append(extra, path)
		}
	}
	result := importer.Pipeline{
		Store:  importer.SQLStore{DB: database},
		Jobs:   importer.DefaultJobs(extra...),
		Logger: logger,
	}.Run(ctx)
	if !result.Success {
		return errors.New("data import failed")
	}
	return nil
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, setupFirst bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	if setupFirst {
		if err := setupSchema(ctx, database, logger); err != nil {
			return err
		}
	}

	advisor, err := mitigation.Select(cfg.MitigationBackend, cfg.Features.MLStubs, cfg.Features.StrictImports)
	if err != nil {
		logger.Error("mitigation backend unavailable", "backend", cfg.MitigationBackend, "error", err)
		return err
	}
	if _, stub := advisor.(mitigation.Unavailable); stub {
		logger.Warn("mitigation features disabled, serving placeholder responses")
	}

	sessionStore, err := httpapi.NewSessionStore(cfg)
	if err != nil {
		logger.Error("session store setup failed", "dir", cfg.SessionDir, "error", err)
		return err
	}

	tokens := services.TokenService{
		Secret:    []byte(cfg.SecretKey),
		Issuer:    cfg.JWTIssuer,
		AccessTTL: cfg.TokenTTL,
	}
	server, err := httpapi.NewServer(cfg, httpapi.Deps{
		DB:        database,
		Accounts:  services.Accounts{DB: database, Tokens: tokens},
		Locations: services.Locations{DB: database},
		Geocoder: geocode.New(geocode.Config{
			Endpoint:  cfg.GeocoderURL,
			UserAgent: cfg.GeocoderUserAgent,
			Region:    cfg.GeocoderRegion,
			Timeout:   cfg.GeocoderTimeout,
			CacheTTL:  cfg.GeocoderCacheTTL,
			Logger:    logger,
		}),
		Advisor:  advisor,
		Tokens:   tokens,
		Sessions: sessionStore,
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr, "environment", cfg.Environment, "pid", os.Getpid())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
