// Package export snapshots the medallion tables to disk: bronze and silver
// as JSON, gold as Parquet, each with a metadata sidecar. Unlike the
// builder stages, export is best-effort per table: a failed table is logged
// and skipped while the rest continue.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/config"
	"github.com/meridianworks/sales-medallion/internal/engine"
)

var bronzeTables = []string{
	"bronze_customers",
	"bronze_orders",
	"bronze_sales",
	"bronze_products",
	"bronze_countries",
}

var silverTables = []string{
	"silver_customers",
	"silver_orders",
	"silver_sales",
	"silver_products",
	"silver_countries",
	"silver_fact_sales",
}

var goldTables = []string{
	"gold_dim_customer",
	"gold_dim_product",
	"gold_dim_country",
	"gold_dim_date",
	"gold_fact_sales",
}

// Metadata is the sidecar written next to every exported table.
type Metadata struct {
	Table    string              `json:"table"`
	RowCount int64               `json:"row_count"`
	RunID    string              `json:"run_id,omitempty"`
	Columns  []engine.ColumnInfo `json:"columns"`
}

// Stage is the snapshot/export stage. The engine client is injected by the
// caller, which owns its lifecycle.
type Stage struct {
	client *engine.Client
	cfg    *config.Config
	logger *zap.Logger
	runID  string
}

// New creates the export stage.
func New(client *engine.Client, cfg *config.Config, logger *zap.Logger, runID string) *Stage {
	return &Stage{client: client, cfg: cfg, logger: logger, runID: runID}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "export" }

// Run exports every tier. Only a missing directory is fatal; individual
// table failures are tolerated so one bad table cannot hold back the rest
// of the snapshot.
func (s *Stage) Run(ctx context.Context) error {
	sets := []struct {
		label  string
		dir    string
		tables []string
		format string
	}{
		{label: "bronze", dir: filepath.Join(s.cfg.Paths.ExportDir, "bronze"), tables: bronzeTables, format: "JSON"},
		{label: "silver", dir: filepath.Join(s.cfg.Paths.ExportDir, "silver"), tables: silverTables, format: "JSON"},
		{label: "gold", dir: filepath.Join(s.cfg.Paths.ExportDir, "gold"), tables: goldTables, format: "PARQUET"},
	}

	for _, set := range sets {
		if err := os.MkdirAll(set.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export dir %s: %w", set.dir, err)
		}

		s.logger.Info("exporting table set",
			zap.String("tier", set.label),
			zap.String("dir", set.dir))

		for _, table := range set.tables {
			if err := s.exportTable(ctx, table, set.dir, set.format); err != nil {
				s.logger.Error("table export failed, continuing",
					zap.String("table", table),
					zap.Error(err))
				continue
			}
		}
	}

	s.logger.Info("export finished")
	return nil
}

// exportTable copies one table to disk and writes its metadata sidecar.
func (s *Stage) exportTable(ctx context.Context, table, dir, format string) error {
	ext := ".json"
	if format == "PARQUET" {
		ext = ".parquet"
	}
	outPath := filepath.Join(dir, table+ext)

	copySQL := fmt.Sprintf("COPY (SELECT * FROM %s) TO %s (FORMAT %s)",
		table, engine.QuoteLiteral(outPath), format)
	if err := s.client.Exec(ctx, copySQL); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	metaPath, err := s.writeMetadata(ctx, table, dir)
	if err != nil {
		return err
	}

	s.logger.Info("table exported",
		zap.String("table", table),
		zap.String("data", filepath.Base(outPath)),
		zap.String("meta", filepath.Base(metaPath)))
	return nil
}

// writeMetadata writes <table>.meta.json: row count plus the ordered column
// manifest from the engine's schema introspection.
func (s *Stage) writeMetadata(ctx context.Context, table, dir string) (string, error) {
	count, err := s.client.RowCount(ctx, table)
	if err != nil {
		return "", err
	}

	cols, err := s.client.TableInfo(ctx, table)
	if err != nil {
		return "", err
	}

	meta := Metadata{
		Table:    table,
		RowCount: count,
		RunID:    s.runID,
		Columns:  cols,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	path := filepath.Join(dir, table+".meta.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write metadata: %w", err)
	}
	return path, nil
}
