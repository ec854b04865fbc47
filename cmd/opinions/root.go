package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-opinions-backend/internal/config"
	"github.com/tbourn/go-opinions-backend/internal/repo"
	"github.com/tbourn/go-opinions-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	envFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "opinions",
		Short:        "Opinions API server and tools",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		// serve is the default
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	root.Version = version
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(a), newLoadCmd(a))
	return root
}

// init loads the optional dotenv file, reads config and sets up logging.
// A missing env file is not an error; variables already set win.
func (a *app) init() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	sysutil.SetLogLevel(cfg.LogLevel)
	sysutil.ConfigureLogger(os.Stderr, cfg.LogPretty)
	return nil
}

// openDB connects to the configured backend and migrates the schema.
func (a *app) openDB() (*gorm.DB, error) {
	db, err := repo.Open(a.cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if a.cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return nil, fmt.Errorf("db tracing: %w", err)
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
