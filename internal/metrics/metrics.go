// Package metrics registers the Prometheus instruments shared by all
// pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TablesBuilt counts table builds per stage and table.
	TablesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_tables_built_total",
		Help: "Total number of table builds, per stage and table",
	}, []string{"stage", "table"})

	// TableRows reports the row count of the most recent build of a table.
	TableRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "medallion_table_rows",
		Help: "Row count of the most recent build of each table",
	}, []string{"table"})

	// StageDuration observes wall time per completed stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medallion_stage_duration_seconds",
		Help:    "Duration of completed pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	// StageErrors counts fatal stage failures.
	StageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_stage_errors_total",
		Help: "Total number of fatal stage failures",
	}, []string{"stage"})

	// RepairsAttempted counts bronze repair passes, per source file.
	RepairsAttempted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medallion_bronze_repairs_total",
		Help: "Total number of repair-and-retry passes on raw documents",
	}, []string{"file"})
)
