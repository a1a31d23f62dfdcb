// Package silver implements the conformance stage: type-enforced copies of
// the bronze tables, the denormalized sales fact view, and the
// referential-integrity diagnostics.
package silver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/config"
	"github.com/meridianworks/sales-medallion/internal/engine"
	"github.com/meridianworks/sales-medallion/internal/metrics"
	"github.com/meridianworks/sales-medallion/internal/pipeline"
)

// factSalesSQL joins every conformed entity onto the sale line. Left joins
// throughout: a sale with a dangling key keeps its row and surfaces nulls.
// The country join matches the customer's country text against the
// reference table's country name; no normalization is applied, so
// whitespace or casing drift in the feeds will miss (known risk, matches
// observed upstream behavior).
const factSalesSQL = `SELECT
    ss.SaleId,
    ss.Quantity,

    so.OrderId,
    so.Date AS OrderDate,

    sc.CustomerId,
    sc.Name    AS CustomerName,
    sc.Country AS CustomerCountry,
    sc.City    AS CustomerCity,

    sp.ProductId,
    sp.Name    AS ProductName,
    sp.ManufacturedCountry AS ProductCountry,

    c.Currency AS CountryCurrency,
    c.GDPPerCapita AS CountryGDPPerCapita
FROM silver_sales ss
LEFT JOIN silver_orders    so ON ss.OrderId   = so.OrderId
LEFT JOIN silver_customers sc ON so.CustomerId = sc.CustomerId
LEFT JOIN silver_products  sp ON ss.ProductId = sp.ProductId
LEFT JOIN silver_countries c  ON sc.Country   = c.Country`

// Diagnostics holds the referential-integrity counts computed after the
// silver tables are built. Logged only, never persisted as a table.
type Diagnostics struct {
	OrdersMissingCustomer int64
	SalesMissingOrder     int64
	SalesMissingProduct   int64
}

// Stage is the silver conformance stage. The engine client is injected by
// the caller, which owns its lifecycle.
type Stage struct {
	client *engine.Client
	cfg    *config.Config
	logger *zap.Logger
}

// New creates the silver stage.
func New(client *engine.Client, cfg *config.Config, logger *zap.Logger) *Stage {
	return &Stage{client: client, cfg: cfg, logger: logger}
}

// Name implements pipeline.Stage.
func (s *Stage) Name() string { return "silver" }

// Run builds the five conformed tables, then the fact view, then computes
// and logs the diagnostics and the bronze-vs-silver row deltas.
func (s *Stage) Run(ctx context.Context) error {
	s.logger.Info("starting silver build", zap.String("db", s.cfg.Database.Path))

	for _, e := range Entities {
		ok, err := s.client.TableExists(ctx, e.Bronze)
		if err != nil {
			return err
		}
		if !ok {
			return &pipeline.MissingInputError{Path: e.Bronze}
		}
	}

	for _, e := range Entities {
		if err := s.buildEntity(ctx, e); err != nil {
			return err
		}
	}

	if err := s.buildFactSales(ctx); err != nil {
		return err
	}

	if _, err := s.runQualityChecks(ctx); err != nil {
		return err
	}

	if err := s.logBronzeVsSilver(ctx); err != nil {
		return err
	}

	s.logger.Info("silver build finished")
	return nil
}

// buildEntity runs the generic cast-and-filter builder for one entity. A
// cast that cannot succeed for the whole column fails the stage; the null
// identifier filter is the only row-level recovery mechanism.
func (s *Stage) buildEntity(ctx context.Context, e EntitySpec) error {
	s.logger.Info("creating silver table", zap.String("table", e.Silver))

	count, err := s.client.CreateTableAs(ctx, e.Silver, e.SelectSQL())
	if err != nil {
		return &pipeline.TypeConformanceError{Table: e.Silver, Err: err}
	}

	metrics.TablesBuilt.WithLabelValues(s.Name(), e.Silver).Inc()
	metrics.TableRows.WithLabelValues(e.Silver).Set(float64(count))
	s.logger.Info("table created", zap.String("table", e.Silver), zap.Int64("rows", count))
	return nil
}

func (s *Stage) buildFactSales(ctx context.Context) error {
	s.logger.Info("creating silver table", zap.String("table", "silver_fact_sales"))

	count, err := s.client.CreateTableAs(ctx, "silver_fact_sales", factSalesSQL)
	if err != nil {
		return &pipeline.TypeConformanceError{Table: "silver_fact_sales", Err: err}
	}

	metrics.TablesBuilt.WithLabelValues(s.Name(), "silver_fact_sales").Inc()
	metrics.TableRows.WithLabelValues("silver_fact_sales").Set(float64(count))
	s.logger.Info("table created", zap.String("table", "silver_fact_sales"), zap.Int64("rows", count))
	return nil
}

// runQualityChecks computes the orphan counts and logs them. Advisory only;
// the counts never alter control flow.
func (s *Stage) runQualityChecks(ctx context.Context) (*Diagnostics, error) {
	s.logger.Info("running data quality checks")

	var diag Diagnostics
	checks := []struct {
		name  string
		query string
		dest  *int64
	}{
		{
			name: "orders_missing_customer",
			query: `SELECT COUNT(*)
FROM silver_orders o
LEFT JOIN silver_customers c ON o.CustomerId = c.CustomerId
WHERE c.CustomerId IS NULL`,
			dest: &diag.OrdersMissingCustomer,
		},
		{
			name: "sales_missing_order",
			query: `SELECT COUNT(*)
FROM silver_sales s
LEFT JOIN silver_orders o ON s.OrderId = o.OrderId
WHERE o.OrderId IS NULL`,
			dest: &diag.SalesMissingOrder,
		},
		{
			name: "sales_missing_product",
			query: `SELECT COUNT(*)
FROM silver_sales s
LEFT JOIN silver_products p ON s.ProductId = p.ProductId
WHERE p.ProductId IS NULL`,
			dest: &diag.SalesMissingProduct,
		},
	}

	for _, c := range checks {
		if err := s.client.DB().QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("quality check %s: %w", c.name, err)
		}
		s.logger.Info("quality check", zap.String("check", c.name), zap.Int64("count", *c.dest))
	}

	return &diag, nil
}

// logBronzeVsSilver logs per-entity (bronze count, silver count, diff) for
// all five entities. The diff is never positive: the only silver filter is
// the null-identifier exclusion.
func (s *Stage) logBronzeVsSilver(ctx context.Context) error {
	s.logger.Info("comparing bronze vs silver row counts")

	for _, e := range Entities {
		bronzeCount, err := s.client.RowCount(ctx, e.Bronze)
		if err != nil {
			return err
		}
		silverCount, err := s.client.RowCount(ctx, e.Silver)
		if err != nil {
			return err
		}
		s.logger.Info("row check",
			zap.String("dataset", e.Name),
			zap.Int64("bronze", bronzeCount),
			zap.Int64("silver", silverCount),
			zap.Int64("diff", silverCount-bronzeCount))
	}
	return nil
}
