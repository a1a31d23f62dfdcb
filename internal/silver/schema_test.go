package silver

import (
	"strings"
	"testing"
)

func TestEntitySpec_SelectSQL(t *testing.T) {
	spec := EntitySpec{
		Name:   "orders",
		Bronze: "bronze_orders",
		Silver: "silver_orders",
		Key:    "OrderId",
		Columns: []ColumnSpec{
			{Source: "OrderId", Type: "BIGINT"},
			{Source: "Date", Type: "DATE"},
		},
	}

	sql := spec.SelectSQL()

	checks := []string{
		`CAST("OrderId" AS BIGINT) AS OrderId`,
		`CAST("Date" AS DATE) AS Date`,
		`FROM bronze_orders`,
		`WHERE "OrderId" IS NOT NULL`,
	}
	for _, want := range checks {
		if !strings.Contains(sql, want) {
			t.Errorf("expected SQL to contain %q\nGot:\n%s", want, sql)
		}
	}
}

func TestEntitySpec_SelectSQL_Renames(t *testing.T) {
	spec := EntitySpec{
		Bronze: "bronze_countries",
		Key:    "Country",
		Columns: []ColumnSpec{
			{Source: "GDP ($ per capita)", Type: "BIGINT", Name: "GDPPerCapita"},
		},
	}

	sql := spec.SelectSQL()
	if !strings.Contains(sql, `CAST("GDP ($ per capita)" AS BIGINT) AS GDPPerCapita`) {
		t.Errorf("expected renamed cast in SQL\nGot:\n%s", sql)
	}
}

func TestEntities_CountriesRenames(t *testing.T) {
	var countries *EntitySpec
	for i := range Entities {
		if Entities[i].Name == "countries" {
			countries = &Entities[i]
		}
	}
	if countries == nil {
		t.Fatal("countries entity not declared")
	}

	renames := map[string]string{
		"Area (sq. mi.)":                      "AreaSqMi",
		"Pop. Density (per sq. mi.)":          "PopDensity",
		"Coastline (coast per area ratio)":    "CoastlineRatio",
		"Net migration":                       "NetMigration",
		"Infant mortality (per 1000 births)":  "InfantMortality",
		"GDP ($ per capita)":                  "GDPPerCapita",
		"Literacy (%)":                        "LiteracyPct",
		"Phones (per 1000)":                   "PhonesPer1000",
		"Arable (%)":                          "ArablePct",
		"Crops (%)":                           "CropsPct",
		"Other (%)":                           "OtherLandPct",
	}

	declared := map[string]string{}
	for _, c := range countries.Columns {
		declared[c.Source] = c.target()
	}

	for source, want := range renames {
		got, ok := declared[source]
		if !ok {
			t.Errorf("missing column spec for %q", source)
			continue
		}
		if got != want {
			t.Errorf("%q: expected rename to %q, got %q", source, want, got)
		}
	}
}

func TestEntities_KeysAndOrder(t *testing.T) {
	wantOrder := []string{"customers", "products", "orders", "sales", "countries"}
	if len(Entities) != len(wantOrder) {
		t.Fatalf("expected %d entities, got %d", len(wantOrder), len(Entities))
	}
	for i, name := range wantOrder {
		if Entities[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, Entities[i].Name)
		}
	}

	keys := map[string]string{
		"customers": "CustomerId",
		"products":  "ProductId",
		"orders":    "OrderId",
		"sales":     "SaleId",
		"countries": "Country",
	}
	for _, e := range Entities {
		if e.Key != keys[e.Name] {
			t.Errorf("%s: expected key %s, got %s", e.Name, keys[e.Name], e.Key)
		}
	}
}
