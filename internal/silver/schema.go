package silver

import (
	"fmt"
	"strings"

	"github.com/meridianworks/sales-medallion/internal/engine"
)

// ColumnSpec declares one cast: a bronze source column, the DuckDB type it
// must conform to, and an optional rename.
type ColumnSpec struct {
	Source string
	Type   string
	Name   string // silver column name; empty keeps the source name
}

func (c ColumnSpec) target() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Source
}

// EntitySpec drives the generic conformance builder for one entity.
type EntitySpec struct {
	Name    string // dataset label used in diagnostics
	Bronze  string
	Silver  string
	Key     string // bronze column whose null rows are filtered out
	Columns []ColumnSpec
}

// SelectSQL renders the cast-and-filter projection for this entity. Source
// identifiers are quoted because raw JSON headers carry spaces, dots and
// percent signs.
func (e EntitySpec) SelectSQL() string {
	var b strings.Builder
	b.WriteString("SELECT\n")
	for i, c := range e.Columns {
		fmt.Fprintf(&b, "    CAST(%s AS %s) AS %s", engine.QuoteIdent(c.Source), c.Type, c.target())
		if i < len(e.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "FROM %s\n", e.Bronze)
	fmt.Fprintf(&b, "WHERE %s IS NOT NULL", engine.QuoteIdent(e.Key))
	return b.String()
}

// Entities is the fixed build order of the silver stage. Column names stay
// as bronze delivered them, except the countries feed whose long free-text
// headers are renamed to stable identifiers.
var Entities = []EntitySpec{
	{
		Name:   "customers",
		Bronze: "bronze_customers",
		Silver: "silver_customers",
		Key:    "CustomerId",
		Columns: []ColumnSpec{
			{Source: "CustomerId", Type: "BIGINT"},
			{Source: "Active", Type: "BOOLEAN"},
			{Source: "Name", Type: "VARCHAR"},
			{Source: "Address", Type: "VARCHAR"},
			{Source: "City", Type: "VARCHAR"},
			{Source: "Country", Type: "VARCHAR"},
			{Source: "Email", Type: "VARCHAR"},
		},
	},
	{
		Name:   "products",
		Bronze: "bronze_products",
		Silver: "silver_products",
		Key:    "ProductId",
		Columns: []ColumnSpec{
			{Source: "ProductId", Type: "BIGINT"},
			{Source: "Name", Type: "VARCHAR"},
			{Source: "ManufacturedCountry", Type: "VARCHAR"},
			{Source: "WeightGrams", Type: "DOUBLE"},
		},
	},
	{
		Name:   "orders",
		Bronze: "bronze_orders",
		Silver: "silver_orders",
		Key:    "OrderId",
		Columns: []ColumnSpec{
			{Source: "OrderId", Type: "BIGINT"},
			{Source: "CustomerId", Type: "BIGINT"},
			{Source: "Date", Type: "DATE"},
		},
	},
	{
		Name:   "sales",
		Bronze: "bronze_sales",
		Silver: "silver_sales",
		Key:    "SaleId",
		Columns: []ColumnSpec{
			{Source: "SaleId", Type: "BIGINT"},
			{Source: "OrderId", Type: "BIGINT"},
			{Source: "ProductId", Type: "BIGINT"},
			{Source: "Quantity", Type: "DOUBLE"},
		},
	},
	{
		Name:   "countries",
		Bronze: "bronze_countries",
		Silver: "silver_countries",
		Key:    "Country",
		Columns: []ColumnSpec{
			{Source: "Country", Type: "VARCHAR"},
			{Source: "Currency", Type: "VARCHAR"},
			{Source: "Name", Type: "VARCHAR"},
			{Source: "Region", Type: "VARCHAR"},
			{Source: "Population", Type: "BIGINT"},
			{Source: "Area (sq. mi.)", Type: "BIGINT", Name: "AreaSqMi"},
			{Source: "Pop. Density (per sq. mi.)", Type: "DOUBLE", Name: "PopDensity"},
			{Source: "Coastline (coast per area ratio)", Type: "DOUBLE", Name: "CoastlineRatio"},
			{Source: "Net migration", Type: "DOUBLE", Name: "NetMigration"},
			{Source: "Infant mortality (per 1000 births)", Type: "DOUBLE", Name: "InfantMortality"},
			{Source: "GDP ($ per capita)", Type: "BIGINT", Name: "GDPPerCapita"},
			{Source: "Literacy (%)", Type: "DOUBLE", Name: "LiteracyPct"},
			{Source: "Phones (per 1000)", Type: "DOUBLE", Name: "PhonesPer1000"},
			{Source: "Arable (%)", Type: "DOUBLE", Name: "ArablePct"},
			{Source: "Crops (%)", Type: "DOUBLE", Name: "CropsPct"},
			{Source: "Other (%)", Type: "DOUBLE", Name: "OtherLandPct"},
			{Source: "Climate", Type: "DOUBLE"},
			{Source: "Birthrate", Type: "DOUBLE"},
			{Source: "Deathrate", Type: "DOUBLE"},
			{Source: "Agriculture", Type: "DOUBLE"},
			{Source: "Industry", Type: "DOUBLE"},
			{Source: "Service", Type: "DOUBLE"},
		},
	},
}
