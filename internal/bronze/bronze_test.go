package bronze

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/meridianworks/sales-medallion/internal/config"
	"github.com/meridianworks/sales-medallion/internal/engine"
	"github.com/meridianworks/sales-medallion/internal/pipeline"
)

// writeRawSet writes a minimal but complete raw input set. The customers
// document is deliberately malformed with trailing commas and a blank line
// so the repair path is exercised on a normal run.
func writeRawSet(t *testing.T, rawDir string) {
	t.Helper()

	files := map[string]string{
		"customers.json": `{"CustomerId":1,"Active":true,"Name":"A","Address":"1 Main St","City":"Oslo","Country":"Norway","Email":"a@example.com"},

{"CustomerId":null,"Active":false,"Name":"Bad","Address":null,"City":null,"Country":null,"Email":null},
`,
		"products.json": `[{"ProductId":10,"Name":"Widget","ManufacturedCountry":"Norway","WeightGrams":125.5}]`,
		"orders.json":   `[{"OrderId":100,"CustomerId":1,"Date":"2020-01-01"}]`,
		"sales.json":    `[{"SaleId":1000,"OrderId":100,"ProductId":10,"Quantity":2}]`,
		"countries.json": `[{"Country":"Norway","Currency":"NOK","Name":"Norway","Region":"EUROPE","Population":5400000,` +
			`"Area (sq. mi.)":125021,"Pop. Density (per sq. mi.)":35.0,"Coastline (coast per area ratio)":7.0,` +
			`"Net migration":1.7,"Infant mortality (per 1000 births)":3.7,"GDP ($ per capita)":37800,` +
			`"Literacy (%)":100.0,"Phones (per 1000)":461.7,"Arable (%)":2.87,"Crops (%)":0.0,"Other (%)":97.13,` +
			`"Climate":3.0,"Birthrate":11.46,"Deathrate":9.4,"Agriculture":0.021,"Industry":0.415,"Service":0.564}]`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func testConfig(t *testing.T) (*config.Config, *engine.Client) {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default(root)
	if err := os.MkdirAll(cfg.Paths.RawDir, 0o755); err != nil {
		t.Fatalf("failed to create raw dir: %v", err)
	}

	client, err := engine.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return cfg, client
}

func TestStage_LoadsAllTablesWithRepair(t *testing.T) {
	cfg, client := testConfig(t)
	writeRawSet(t, cfg.Paths.RawDir)

	stage := New(client, cfg, zap.NewNop())
	if err := stage.Run(context.Background()); err != nil {
		t.Fatalf("bronze stage failed: %v", err)
	}

	// The malformed customers document must leave a repaired sibling behind.
	if _, err := os.Stat(filepath.Join(cfg.Paths.RawDir, "customers_fixed.json")); err != nil {
		t.Errorf("expected repaired sibling file: %v", err)
	}

	counts := map[string]int64{
		"bronze_customers": 2, // null-id row is kept at this tier
		"bronze_products":  1,
		"bronze_orders":    1,
		"bronze_sales":     1,
		"bronze_countries": 1,
	}
	for table, want := range counts {
		got, err := client.RowCount(context.Background(), table)
		if err != nil {
			t.Fatalf("failed to count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s: expected %d rows, got %d", table, want, got)
		}
	}
}

func TestStage_Rerun_ReplacesTables(t *testing.T) {
	cfg, client := testConfig(t)
	writeRawSet(t, cfg.Paths.RawDir)

	stage := New(client, cfg, zap.NewNop())
	for i := 0; i < 2; i++ {
		if err := stage.Run(context.Background()); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}

	got, err := client.RowCount(context.Background(), "bronze_customers")
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if got != 2 {
		t.Errorf("rerun must replace, not append: expected 2 rows, got %d", got)
	}
}

func TestStage_MissingFileIsFatal(t *testing.T) {
	cfg, client := testConfig(t)
	// No raw files written at all.

	stage := New(client, cfg, zap.NewNop())
	err := stage.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error for missing input")
	}

	var missing *pipeline.MissingInputError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingInputError, got %T: %v", err, err)
	}
}

func TestStage_IrreparableInputEscalates(t *testing.T) {
	cfg, client := testConfig(t)
	writeRawSet(t, cfg.Paths.RawDir)

	// Not JSON, and not recoverable by comma/blank-line normalization.
	garbage := "this is not json at all\nstill not json\n"
	if err := os.WriteFile(filepath.Join(cfg.Paths.RawDir, "customers.json"), []byte(garbage), 0o644); err != nil {
		t.Fatalf("failed to write garbage: %v", err)
	}

	stage := New(client, cfg, zap.NewNop())
	err := stage.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error for irreparable input")
	}

	var malformed *pipeline.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %T: %v", err, err)
	}
	if !malformed.RepairAttempted {
		t.Error("expected the repair pass to have been attempted before escalating")
	}
	if malformed.Table != "bronze_customers" {
		t.Errorf("expected failing table bronze_customers, got %s", malformed.Table)
	}
}
