package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mudra",
		Short:         "Hand-tracking rehabilitation sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $MUDRA_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log_level: debug|info|warn|error")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newReplayCmd(opts))
	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newCalibrateCmd(opts))
	return root
}

// env is everything a command needs, built from the loaded config.
type env struct {
	cfg     *config.Config
	app     *app.App
	records session.RecordStore
	metrics *metrics.Manager
	log     logger.Logger

	db *store.Store
}

func (e *env) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

func loadConfig(ctx context.Context, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(ctx, opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := logger.Init(cfg.LogFormat); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openRecords(ctx context.Context, cfg *config.Config) (session.RecordStore, *store.Store, error) {
	path := cfg.StoragePath()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	log := logger.Named("store")
	switch cfg.Storage.Driver {
	case config.DriverJSON:
		log.Info(ctx, "using json record file", logger.String("path", path))
		return store.NewJSONFile(path), nil, nil
	default:
		db, err := store.New(path)
		if err != nil {
			return nil, nil, err
		}
		log.Info(ctx, "using sqlite database", logger.String("path", path))
		return db.Records(), db, nil
	}
}

func setup(ctx context.Context, opts *rootOptions) (*env, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	records, db, err := openRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, records: records, db: db, log: logger.Named("mudra")}

	m, err := metrics.NewManager()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.metrics = m

	pc, err := cfg.PinchConfig()
	if err != nil {
		e.Close()
		return nil, err
	}
	tasks, err := cfg.Tasks()
	if err != nil {
		e.Close()
		return nil, err
	}

	appCfg := app.Config{
		Pinch:            pc,
		Posture:          cfg.PostureConfig(),
		Tasks:            tasks,
		DistanceStrength: cfg.UsesDistanceStrength(),
		DistanceMin:      cfg.Pinch.DistanceMin,
		DistanceMax:      cfg.Pinch.DistanceMax,
		Records:          records,
		Logger:           logger.Get(),
		Metrics:          m,
	}
	if db != nil {
		appCfg.Settings = db.Settings()
	}
	a, err := app.New(ctx, appCfg)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.app = a
	return e, nil
}

// loadPrevious reads the persisted record without building the app.
func loadPrevious(ctx context.Context, opts *rootOptions) (*session.Record, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}
	records, db, err := openRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		defer db.Close()
	}
	rec, err := records.LoadPrevious(ctx)
	if errors.Is(err, session.ErrNoRecord) {
		return nil, errors.New("no session recorded yet")
	}
	return rec, err
}
