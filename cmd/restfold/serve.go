package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/restfold/restfold/internal/config"
	"github.com/restfold/restfold/internal/query"
	"github.com/restfold/restfold/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST server",
	Long:  "Load the configuration, open the database, and serve every registered resource over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := openDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		registry, err := buildRegistry()
		if err != nil {
			return err
		}

		engine := query.NewEngine(registry)
		engine.DefaultPageSize = cfg.Pagination.DefaultPageSize
		engine.MaxPageSize = cfg.Pagination.MaxPageSize

		router, err := web.NewRouter(registry, engine, db, logger)
		if err != nil {
			return err
		}

		server, err := web.NewServer(&web.ServerConfig{
			Address:           cfg.Server.Address,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       cfg.Server.IdleTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ShutdownTimeout:   cfg.Server.ShutdownTimeout,
			MaxHeaderBytes:    1 << 20,
		}, router, logger)
		if err != nil {
			return err
		}

		return server.Start(context.Background())
	},
}

// openDatabase opens the configured driver and applies pool settings
func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}
