package engine

import (
	"context"
	"path/filepath"
	"testing"
)

func open(t *testing.T) *Client {
	t.Helper()
	client, err := Open(filepath.Join(t.TempDir(), "test.duckdb"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCreateTableAs(t *testing.T) {
	client := open(t)
	ctx := context.Background()

	count, err := client.CreateTableAs(ctx, "t",
		"SELECT * FROM (VALUES (1), (2), (3)) v(x)")
	if err != nil {
		t.Fatalf("CreateTableAs failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 rows, got %d", count)
	}

	// Replacing the table must not error and must report the new count.
	count, err = client.CreateTableAs(ctx, "t",
		"SELECT * FROM (VALUES (1)) v(x)")
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after replace, got %d", count)
	}
}

func TestTableExists(t *testing.T) {
	client := open(t)
	ctx := context.Background()

	ok, err := client.TableExists(ctx, "absent")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if ok {
		t.Error("expected absent table to be reported missing")
	}

	if _, err := client.CreateTableAs(ctx, "present", "SELECT 1 AS x"); err != nil {
		t.Fatalf("CreateTableAs failed: %v", err)
	}

	ok, err = client.TableExists(ctx, "present")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if !ok {
		t.Error("expected created table to be reported present")
	}
}

func TestTableInfo(t *testing.T) {
	client := open(t)
	ctx := context.Background()

	err := client.Exec(ctx,
		"CREATE TABLE items (Id BIGINT NOT NULL, Label VARCHAR)")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cols, err := client.TableInfo(ctx, "items")
	if err != nil {
		t.Fatalf("TableInfo failed: %v", err)
	}
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(cols))
	}

	if cols[0].Name != "Id" || cols[0].Type != "BIGINT" || !cols[0].NotNull {
		t.Errorf("unexpected first column: %+v", cols[0])
	}
	if cols[1].Name != "Label" || cols[1].NotNull {
		t.Errorf("unexpected second column: %+v", cols[1])
	}
}

func TestQuoting(t *testing.T) {
	if got := QuoteIdent(`GDP ($ per capita)`); got != `"GDP ($ per capita)"` {
		t.Errorf("QuoteIdent: got %s", got)
	}
	if got := QuoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("QuoteIdent must escape embedded quotes, got %s", got)
	}
	if got := QuoteLiteral(`it's`); got != `'it''s'` {
		t.Errorf("QuoteLiteral must escape embedded quotes, got %s", got)
	}
}
