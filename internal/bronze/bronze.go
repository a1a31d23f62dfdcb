// Package bronze implements the ingestion stage: each raw JSON document is
// loaded into a bronze table with schema and types inferred by DuckDB,
// falling back to a one-shot repair-and-retry when strict parsing fails.
package bronze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/config"
	"github.com/meridianworks/sales-medallion/internal/engine"
	"github.com/meridianworks/sales-medallion/internal/metrics"
	"github.com/meridianworks/sales-medallion/internal/pipeline"
)

// TableSpec maps one raw document to its bronze table.
type TableSpec struct {
	File  string
	Table string
}

// Tables is the fixed load order of the bronze stage.
var Tables = []TableSpec{
	{File: "customers.json", Table: "bronze_customers"},
	{File: "products.json", Table: "bronze_products"},
	{File: "orders.json", Table: "bronze_orders"},
	{File: "sales.json", Table: "bronze_sales"},
	{File: "countries.json", Table: "bronze_countries"},
}

// loadState tracks the repair-and-retry state machine for one document.
// The transitions are Attempting -> Repairing -> Retrying; any terminal
// failure aborts the stage.
type loadState int

const (
	stateAttempting loadState = iota
	stateRepairing
	stateRetrying
)

// Stage is the bronze ingestion stage. The engine client is injected by
// the caller, which owns its lifecycle.
type Stage struct {
	client *engine.Client
	cfg    *config.Config
	logger *zap.Logger
}

// New creates the bronze stage.
func New(client *engine.Client, cfg *config.Config, logger *zap.Logger) *Stage {
	return &Stage{client: client, cfg: cfg, logger: logger}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "bronze" }

// Run loads every raw document into its bronze table, in fixed order. Any
// table failure is fatal for the whole stage: a partial bronze tier is not
// an acceptable state for silver to proceed from.
func (s *Stage) Run(ctx context.Context) error {
	s.logger.Info("starting bronze load",
		zap.String("db", s.cfg.Database.Path),
		zap.String("raw_dir", s.cfg.Paths.RawDir))

	for _, spec := range Tables {
		if err := s.loadTable(ctx, spec); err != nil {
			return err
		}
	}

	s.logger.Info("bronze load finished")
	return nil
}

// loadTable runs the load state machine for one document. Strict load
// first; on failure, exactly one repair pass and one retry with the
// line-delimited loader.
func (s *Stage) loadTable(ctx context.Context, spec TableSpec) error {
	path := filepath.Join(s.cfg.Paths.RawDir, spec.File)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &pipeline.MissingInputError{Path: path}
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	s.logger.Info("loading raw document",
		zap.String("file", path),
		zap.String("table", spec.Table))

	state := stateAttempting
	var fixedPath string

	for {
		switch state {
		case stateAttempting:
			err := s.client.Exec(ctx, fmt.Sprintf(
				"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_json_auto(%s)",
				spec.Table, engine.QuoteLiteral(path)))
			if err == nil {
				return s.logBuild(ctx, spec.Table)
			}

			s.logger.Warn("strict JSON load failed, attempting repair",
				zap.String("file", path),
				zap.String("table", spec.Table),
				zap.Error(err))
			if line, verr := ValidateLines(path); verr != nil {
				s.logger.Warn("first malformed line", zap.Int("line", line), zap.Error(verr))
			}
			state = stateRepairing

		case stateRepairing:
			metrics.RepairsAttempted.WithLabelValues(spec.File).Inc()
			fp, err := Repair(path)
			if err != nil {
				return &pipeline.MalformedInputError{
					Source: path, Table: spec.Table, RepairAttempted: true, Err: err,
				}
			}
			fixedPath = fp
			s.logger.Info("wrote repaired NDJSON file", zap.String("file", fixedPath))
			state = stateRetrying

		case stateRetrying:
			err := s.client.Exec(ctx, fmt.Sprintf(
				"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_ndjson_auto(%s)",
				spec.Table, engine.QuoteLiteral(fixedPath)))
			if err != nil {
				return &pipeline.MalformedInputError{
					Source: path, Table: spec.Table, RepairAttempted: true, Err: err,
				}
			}
			s.logger.Info("loaded repaired file", zap.String("file", fixedPath), zap.String("table", spec.Table))
			return s.logBuild(ctx, spec.Table)
		}
	}
}

func (s *Stage) logBuild(ctx context.Context, table string) error {
	count, err := s.client.RowCount(ctx, table)
	if err != nil {
		return err
	}
	metrics.TablesBuilt.WithLabelValues(s.Name(), table).Inc()
	metrics.TableRows.WithLabelValues(table).Set(float64(count))
	s.logger.Info("table created", zap.String("table", table), zap.Int64("rows", count))
	return nil
}
