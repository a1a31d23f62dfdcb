// Package engine wraps the embedded DuckDB connection used by every
// pipeline stage.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Client manages a single DuckDB connection for one stage run.
type Client struct {
	db *sql.DB
}

// Open opens the DuckDB database at path. An empty path opens an in-memory
// database. DuckDB does not handle concurrent writers well, so the pool is
// capped at one connection.
func Open(path string) (*Client, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DuckDB: %w", err)
	}

	return &Client{db: db}, nil
}

// DB exposes the underlying handle for package-level SQL.
func (c *Client) DB() *sql.DB { return c.db }

// Exec runs a statement that produces no result set.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}

// CreateTableAs replaces table with the result of selectSQL and returns the
// resulting row count.
func (c *Client) CreateTableAs(ctx context.Context, table, selectSQL string) (int64, error) {
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS\n%s", table, selectSQL)
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return 0, err
	}
	return c.RowCount(ctx, table)
}

// RowCount returns the number of rows in table.
func (c *Client) RowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// TableExists reports whether a table with the given name exists in the
// attached database.
func (c *Client) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return count > 0, nil
}

// ColumnInfo describes one column of a table, in declaration order.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableInfo returns the ordered column manifest for table, as the export
// sidecars need it.
func (c *Client) TableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", QuoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var (
			cid  int
			col  ColumnInfo
			dflt sql.NullString
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &col.NotNull, &dflt, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column info for %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// Close closes the DuckDB connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// QuoteIdent wraps an identifier in double quotes. Raw JSON headers contain
// spaces, dots and percent signs, so every source column goes through this.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string in single quotes for inlining into SQL, e.g.
// file paths handed to read_json_auto and COPY.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
