// Command medallion runs the sales medallion pipeline: bronze ingestion,
// silver conformance, gold modeling and snapshot export, each invocable on
// its own or as one sequential run.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/bronze"
	"github.com/meridianworks/sales-medallion/internal/config"
	"github.com/meridianworks/sales-medallion/internal/engine"
	"github.com/meridianworks/sales-medallion/internal/export"
	"github.com/meridianworks/sales-medallion/internal/gold"
	"github.com/meridianworks/sales-medallion/internal/health"
	"github.com/meridianworks/sales-medallion/internal/pipeline"
	"github.com/meridianworks/sales-medallion/internal/silver"
	"github.com/meridianworks/sales-medallion/internal/stagelog"
)

// stageFactory builds one stage around an injected engine client.
type stageFactory = func(*engine.Client, *config.Config, *zap.Logger, string) pipeline.Stage

// stageDef couples a subcommand with its stage constructor. requiresDB
// marks the stages that read an existing database; only bronze may create
// one.
type stageDef struct {
	name       string
	short      string
	requiresDB bool
	build      stageFactory
}

var stageDefs = []stageDef{
	{
		name:  "bronze",
		short: "Load raw JSON documents into bronze tables",
		build: func(c *engine.Client, cfg *config.Config, log *zap.Logger, _ string) pipeline.Stage {
			return bronze.New(c, cfg, log)
		},
	},
	{
		name:       "silver",
		short:      "Conform bronze tables into typed silver tables",
		requiresDB: true,
		build: func(c *engine.Client, cfg *config.Config, log *zap.Logger, _ string) pipeline.Stage {
			return silver.New(c, cfg, log)
		},
	},
	{
		name:       "gold",
		short:      "Build the dimensional model from silver tables",
		requiresDB: true,
		build: func(c *engine.Client, cfg *config.Config, log *zap.Logger, _ string) pipeline.Stage {
			return gold.New(c, cfg, log)
		},
	},
	{
		name:       "export",
		short:      "Snapshot all tiers to JSON/Parquet with metadata sidecars",
		requiresDB: true,
		build: func(c *engine.Client, cfg *config.Config, log *zap.Logger, runID string) pipeline.Stage {
			return export.New(c, cfg, log, runID)
		},
	},
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "medallion",
		Short:         "Sales medallion pipeline (bronze / silver / gold / export)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")

	for _, def := range stageDefs {
		def := def
		root.AddCommand(&cobra.Command{
			Use:   def.name,
			Short: def.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				return runStage(cmd.Context(), cfg, def)
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: bronze, silver, gold, export",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runAll(cmd.Context(), cfg)
		},
	})

	return root
}

// loadConfig resolves configuration: explicit flag, then ./config.yaml,
// then built-in defaults rooted at the working directory.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default(".")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runStage executes one stage as an independent unit: its own run id, its
// own log file, and an engine connection acquired at stage start and
// released at stage end regardless of outcome.
func runStage(ctx context.Context, cfg *config.Config, def stageDef) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger, closeLog, err := stagelog.New(def.name, cfg.Paths.LogDir, runID)
	if err != nil {
		return err
	}
	defer closeLog()

	if def.requiresDB {
		if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
			err := &pipeline.MissingInputError{Path: cfg.Database.Path}
			logFailure(logger, err)
			return err
		}
	}

	client, err := engine.Open(cfg.Database.Path)
	if err != nil {
		logFailure(logger, err)
		return err
	}
	defer client.Close()

	stage := def.build(client, cfg, logger, runID)
	if err := stage.Run(ctx); err != nil {
		logFailure(logger, err)
		return err
	}
	return nil
}

// runAll executes every stage in order over one shared engine connection,
// aborting the sequence at the first failure, with the health/metrics
// server up for the duration of the run.
func runAll(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	runLogger, closeLog, err := stagelog.New("pipeline", cfg.Paths.LogDir, runID)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Service.HealthPort != "" {
		healthServer := health.NewServer(cfg.Service.Name, cfg.Service.HealthPort)
		go func() {
			if err := healthServer.Start(); err != nil {
				runLogger.Warn("health server stopped", zap.Error(err))
			}
		}()
	}

	client, err := engine.Open(cfg.Database.Path)
	if err != nil {
		logFailure(runLogger, err)
		return err
	}
	defer client.Close()

	var stages []pipeline.Stage
	var closers []func()
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	for _, def := range stageDefs {
		logger, closeStageLog, err := stagelog.New(def.name, cfg.Paths.LogDir, runID)
		if err != nil {
			return err
		}
		closers = append(closers, closeStageLog)
		stages = append(stages, def.build(client, cfg, logger, runID))
	}

	runner := pipeline.NewRunner(runLogger, stages...)
	if err := runner.Run(ctx); err != nil {
		logFailure(runLogger, err)
		return err
	}

	runLogger.Info("all pipeline stages completed")
	return nil
}

// logFailure surfaces the failing table or file, the engine error, and
// whether a repair pass was attempted.
func logFailure(logger *zap.Logger, err error) {
	var missing *pipeline.MissingInputError
	var malformed *pipeline.MalformedInputError
	var conformance *pipeline.TypeConformanceError

	switch {
	case errors.As(err, &missing):
		logger.Error("required input missing", zap.String("path", missing.Path))
	case errors.As(err, &malformed):
		logger.Error("malformed input",
			zap.String("source", malformed.Source),
			zap.String("table", malformed.Table),
			zap.Bool("repair_attempted", malformed.RepairAttempted),
			zap.Error(malformed.Err))
	case errors.As(err, &conformance):
		logger.Error("type conformance failure",
			zap.String("table", conformance.Table),
			zap.Error(conformance.Err))
	case errors.Is(err, pipeline.ErrEmptyDateRange):
		logger.Error("calendar synthesis has no date bounds", zap.Error(err))
	default:
		logger.Error("pipeline failed", zap.Error(err))
	}
}
