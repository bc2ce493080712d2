package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"graphbridge/internal/schema"
)

// =============================================================================
// DUCKDB CLIENT
// =============================================================================

// DatabaseConfig holds DuckDB tuning options.
type DatabaseConfig struct {
	Threads       int           // Number of threads for DuckDB (0 = default)
	MemoryLimitGB int           // Memory limit in GB (0 = default)
	Timeout       time.Duration // Connect timeout (0 = none)
}

// DuckDBClient is a Catalog backed by an embedded DuckDB database, used for
// local development, dry runs and tests.
type DuckDBClient struct {
	db     *sql.DB
	config DatabaseConfig
	namer  constraintNamer
}

// DuckDBOption configures the DuckDB client.
type DuckDBOption func(*DuckDBClient)

// WithThreads sets the number of DuckDB threads.
func WithThreads(n int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.Threads = n
	}
}

// WithMemoryLimit sets the DuckDB memory limit in GB.
func WithMemoryLimit(gb int) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.MemoryLimitGB = gb
	}
}

// WithTimeout bounds the initial connectivity check.
func WithTimeout(d time.Duration) DuckDBOption {
	return func(c *DuckDBClient) {
		c.config.Timeout = d
	}
}

// WithConventions sets the suffixes used when naming constraint rows.
func WithConventions(conv schema.Conventions) DuckDBOption {
	return func(c *DuckDBClient) {
		c.namer = newConstraintNamer(conv)
	}
}

// NewDuckDBClient opens a DuckDB database. An empty dsn or ":memory:" opens an
// in-memory database; anything else is a file path.
func NewDuckDBClient(dsn string, opts ...DuckDBOption) (*DuckDBClient, error) {
	client := &DuckDBClient{namer: newConstraintNamer(schema.Conventions{})}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	ctx := context.Background()
	if client.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, client.config.Timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// A single connection keeps an in-memory database alive and shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	client.db = db
	if err := client.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure duckdb: %w", err)
	}
	return client, nil
}

func (c *DuckDBClient) configure() error {
	if c.config.Threads > 0 {
		if _, err := c.db.Exec(fmt.Sprintf("PRAGMA threads=%d", c.config.Threads)); err != nil {
			return fmt.Errorf("setting threads: %w", err)
		}
	}
	if c.config.MemoryLimitGB > 0 {
		if _, err := c.db.Exec(fmt.Sprintf("PRAGMA memory_limit='%dGB'", c.config.MemoryLimitGB)); err != nil {
			return fmt.Errorf("setting memory limit: %w", err)
		}
	}
	return nil
}

// Close releases database resources.
func (c *DuckDBClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Exec runs a statement that returns no rows; used to seed local catalogs.
func (c *DuckDBClient) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	return c.db.ExecContext(ctx, query, args...)
}

// =============================================================================
// CATALOG
// =============================================================================

// ListTables returns the base tables of catalog.schema. An empty catalog
// selects the current database.
func (c *DuckDBClient) ListTables(ctx context.Context, catalog, schemaName string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_catalog = coalesce(nullif(?, ''), current_database())
		  AND table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`, catalog, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s.%s: %w", catalog, schemaName, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DescribeTable reads PRIMARY KEY and FOREIGN KEY rows from
// duckdb_constraints() and names them with the configured suffixes.
func (c *DuckDBClient) DescribeTable(ctx context.Context, ref schema.TableRef) (schema.TableDescriptor, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT constraint_type, constraint_text
		FROM duckdb_constraints()
		WHERE database_name = coalesce(nullif(?, ''), current_database())
		  AND schema_name = ?
		  AND table_name = ?
		  AND constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
		ORDER BY constraint_index`, ref.Catalog, ref.Schema, ref.Name)
	if err != nil {
		return schema.TableDescriptor{}, fmt.Errorf("describe %s: %w", ref, err)
	}
	defer rows.Close()

	desc := schema.TableDescriptor{Ref: ref}
	fk := 0
	for rows.Next() {
		var kind, text string
		if err := rows.Scan(&kind, &text); err != nil {
			return schema.TableDescriptor{}, fmt.Errorf("scan constraint of %s: %w", ref, err)
		}
		name := c.namer.primary(ref.Name)
		if kind == "FOREIGN KEY" {
			fk++
			name = c.namer.foreign(ref.Name, fk)
		}
		desc.Constraints = append(desc.Constraints, schema.ConstraintDescriptor{Name: name, Definition: text})
	}
	if err := rows.Err(); err != nil {
		return schema.TableDescriptor{}, fmt.Errorf("describe %s: %w", ref, err)
	}
	return desc, nil
}

// ReadRows streams every row of ref.
func (c *DuckDBClient) ReadRows(ctx context.Context, ref schema.TableRef) (RowIterator, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT * FROM "+qualified(ref))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return newSQLRows(rows)
}
