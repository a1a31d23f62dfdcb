// Package gold implements the dimensional modeling stage: semantic
// dimension tables, a synthesized calendar dimension, and the star-schema
// fact table.
package gold

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/config"
	"github.com/meridianworks/sales-medallion/internal/engine"
	"github.com/meridianworks/sales-medallion/internal/metrics"
	"github.com/meridianworks/sales-medallion/internal/pipeline"
)

// Bronze and silver keep the literal plural names; gold de-pluralizes the
// dimensions so the layer reads like a semantic model, while the fact table
// keeps the plural name.
var dimensions = []struct {
	Table     string
	SelectSQL string
}{
	{
		Table: "gold_dim_customer",
		SelectSQL: `SELECT
    c.CustomerId,
    c.Name    AS CustomerName,
    c.City    AS CustomerCity,
    c.Country AS CustomerCountry,
    c.Active,
    c.Email
FROM silver_customers c
WHERE c.CustomerId IS NOT NULL`,
	},
	{
		Table: "gold_dim_product",
		SelectSQL: `SELECT
    p.ProductId,
    p.Name                AS ProductName,
    p.ManufacturedCountry AS ProductCountry,
    p.WeightGrams
FROM silver_products p
WHERE p.ProductId IS NOT NULL`,
	},
	{
		Table: "gold_dim_country",
		SelectSQL: `SELECT
    c.Country,
    c.Region,
    c.Currency,
    c.Population,
    c.AreaSqMi,
    c.PopDensity,
    c.CoastlineRatio,
    c.NetMigration,
    c.InfantMortality,
    c.GDPPerCapita,
    c.LiteracyPct,
    c.PhonesPer1000,
    c.ArablePct,
    c.CropsPct,
    c.OtherLandPct,
    c.Climate,
    c.Birthrate,
    c.Deathrate,
    c.Agriculture,
    c.Industry,
    c.Service
FROM silver_countries c
WHERE c.Country IS NOT NULL`,
	},
}

// dimDateSQL generates one row per calendar day between the observed order
// date bounds, inclusive: an integer YYYYMMDD DateKey plus the usual
// slicing attributes. DayOfWeek uses the Sunday=0 convention, so the
// weekend test is DOW IN (0, 6).
const dimDateSQL = `WITH bounds AS (
    SELECT
        MIN(Date) AS min_date,
        MAX(Date) AS max_date
    FROM silver_orders
),
dates AS (
    SELECT
        CAST(UNNEST(GENERATE_SERIES(min_date, max_date, INTERVAL 1 DAY)) AS DATE) AS Date
    FROM bounds
)
SELECT
    CAST(STRFTIME(Date, '%Y%m%d') AS INTEGER) AS DateKey,
    Date,
    EXTRACT(YEAR    FROM Date) AS Year,
    EXTRACT(QUARTER FROM Date) AS Quarter,
    EXTRACT(MONTH   FROM Date) AS Month,
    STRFTIME(Date, '%B')       AS MonthName,
    (EXTRACT(YEAR FROM Date) * 100
        + EXTRACT(MONTH FROM Date)) AS YearMonth,
    EXTRACT(WEEK FROM Date)    AS WeekOfYear,
    EXTRACT(DOW  FROM Date)    AS DayOfWeek,
    STRFTIME(Date, '%A')       AS DayOfWeekName,
    CASE
        WHEN EXTRACT(DOW FROM Date) IN (0, 6) THEN TRUE
        ELSE FALSE
    END AS IsWeekend
FROM dates
ORDER BY Date`

// factSalesSQL resolves the DateKey by joining on the date value rather
// than the key, and re-joins silver_products for the unit weight, which the
// silver fact view does not carry. TotalWeightGrams is null whenever either
// operand is.
const factSalesSQL = `SELECT
    f.SaleId,
    f.OrderId,
    d.DateKey,
    f.CustomerId,
    f.ProductId,
    f.CustomerCountry AS Country,
    f.Quantity,
    p.WeightGrams,
    f.Quantity * p.WeightGrams AS TotalWeightGrams
FROM silver_fact_sales f
LEFT JOIN gold_dim_date d
    ON f.OrderDate = d.Date
LEFT JOIN silver_products p
    ON f.ProductId = p.ProductId`

// upstream tables the gold stage refuses to run without.
var required = []string{
	"silver_customers",
	"silver_products",
	"silver_orders",
	"silver_countries",
	"silver_fact_sales",
}

// Stage is the gold modeling stage. The engine client is injected by the
// caller, which owns its lifecycle.
type Stage struct {
	client *engine.Client
	cfg    *config.Config
	logger *zap.Logger
}

// New creates the gold stage.
func New(client *engine.Client, cfg *config.Config, logger *zap.Logger) *Stage {
	return &Stage{client: client, cfg: cfg, logger: logger}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "gold" }

// Run builds the dimensions, the calendar dimension and the fact table, in
// that order; the fact table needs gold_dim_date to already exist.
func (s *Stage) Run(ctx context.Context) error {
	s.logger.Info("starting gold build", zap.String("db", s.cfg.Database.Path))

	for _, table := range required {
		ok, err := s.client.TableExists(ctx, table)
		if err != nil {
			return err
		}
		if !ok {
			return &pipeline.MissingInputError{Path: table}
		}
	}

	for _, d := range dimensions {
		if err := s.build(ctx, d.Table, d.SelectSQL); err != nil {
			return err
		}
	}

	if err := s.buildDimDate(ctx); err != nil {
		return err
	}

	if err := s.build(ctx, "gold_fact_sales", factSalesSQL); err != nil {
		return err
	}

	s.logger.Info("gold build finished")
	return nil
}

// buildDimDate synthesizes the calendar dimension. With zero orders the
// date range is undefined and there is no well-defined empty calendar, so
// the stage fails before touching the table.
func (s *Stage) buildDimDate(ctx context.Context) error {
	var minDate, maxDate sql.NullTime
	err := s.client.DB().QueryRowContext(ctx,
		"SELECT MIN(Date), MAX(Date) FROM silver_orders").Scan(&minDate, &maxDate)
	if err != nil {
		return err
	}
	if !minDate.Valid || !maxDate.Valid {
		return pipeline.ErrEmptyDateRange
	}

	s.logger.Info("calendar bounds",
		zap.Time("min_date", minDate.Time),
		zap.Time("max_date", maxDate.Time))

	return s.build(ctx, "gold_dim_date", dimDateSQL)
}

func (s *Stage) build(ctx context.Context, table, selectSQL string) error {
	s.logger.Info("creating gold table", zap.String("table", table))

	count, err := s.client.CreateTableAs(ctx, table, selectSQL)
	if err != nil {
		return err
	}

	metrics.TablesBuilt.WithLabelValues(s.Name(), table).Inc()
	metrics.TableRows.WithLabelValues(table).Set(float64(count))
	s.logger.Info("table created", zap.String("table", table), zap.Int64("rows", count))
	return nil
}
