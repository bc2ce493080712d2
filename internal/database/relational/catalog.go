// Package relational reads table metadata and rows from the relational catalog
// that feeds the graph: DuckDB, Databricks SQL or PostgreSQL.
package relational

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"

	"graphbridge/internal/config"
	"graphbridge/internal/schema"
)

// =============================================================================
// CORE INTERFACES
// =============================================================================

// Catalog is the metadata and row source for a load.
type Catalog interface {
	// ListTables returns the table names of catalog.schema, sorted.
	ListTables(ctx context.Context, catalog, schemaName string) ([]string, error)
	// DescribeTable returns the constraint rows of one table.
	DescribeTable(ctx context.Context, ref schema.TableRef) (schema.TableDescriptor, error)
	// ReadRows streams the full contents of one table.
	ReadRows(ctx context.Context, ref schema.TableRef) (RowIterator, error)
	// Close releases the connection.
	Close() error
}

// RowIterator streams rows as column-name keyed maps.
type RowIterator interface {
	Next(ctx context.Context) bool
	Row() map[string]any
	Err() error
	Close() error
}

// Open connects to the catalog selected by cfg.Driver.
func Open(ctx context.Context, cfg config.CatalogConfig, conv schema.Conventions) (Catalog, error) {
	switch cfg.Driver {
	case config.DriverDuckDB, "":
		return NewDuckDBClient(cfg.DuckDBPath,
			WithConventions(conv),
			WithThreads(cfg.DuckDBThreads),
			WithMemoryLimit(cfg.DuckDBMemoryGB),
			WithTimeout(10*time.Second),
		)
	case config.DriverDatabricks:
		return NewDatabricksCatalog(cfg.DatabricksHost, cfg.DatabricksHTTPPath, cfg.DatabricksToken)
	case config.DriverPostgres:
		return NewPostgresCatalog(ctx, cfg.PostgresDSN, conv)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// =============================================================================
// CONSTRAINT NAMING
// =============================================================================

// constraintNamer synthesizes descriptor names for sources whose constraint
// names do not follow the _pk/_fk convention, so the plan builders see the
// same shape everywhere.
type constraintNamer struct {
	pkSuffix string
	fkSuffix string
}

func newConstraintNamer(conv schema.Conventions) constraintNamer {
	d := schema.DefaultConventions()
	n := constraintNamer{pkSuffix: conv.PrimaryKeySuffix, fkSuffix: conv.ForeignKeySuffix}
	if n.pkSuffix == "" {
		n.pkSuffix = d.PrimaryKeySuffix
	}
	if n.fkSuffix == "" {
		n.fkSuffix = d.ForeignKeySuffix
	}
	return n
}

func (n constraintNamer) primary(table string) string {
	return table + n.pkSuffix
}

func (n constraintNamer) foreign(table string, i int) string {
	return fmt.Sprintf("%s_%d%s", table, i, n.fkSuffix)
}

// =============================================================================
// database/sql ROW ITERATOR
// =============================================================================

// sqlRows adapts *sql.Rows to RowIterator.
type sqlRows struct {
	rows    *sql.Rows
	columns []string
	current map[string]any
	err     error
}

func newSQLRows(rows *sql.Rows) (*sqlRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return &sqlRows{rows: rows, columns: cols}, nil
}

func (r *sqlRows) Next(ctx context.Context) bool {
	if r.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		r.err = err
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Err()
		return false
	}

	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = fmt.Errorf("scan row: %w", err)
		return false
	}

	row := make(map[string]any, len(r.columns))
	for i, col := range r.columns {
		row[col] = Normalize(values[i])
	}
	r.current = row
	return true
}

func (r *sqlRows) Row() map[string]any { return r.current }
func (r *sqlRows) Err() error          { return r.err }
func (r *sqlRows) Close() error        { return r.rows.Close() }

// =============================================================================
// VALUE NORMALIZATION
// =============================================================================

// Normalize converts a driver value into a type the graph store accepts as a
// property: strings, int64, float64, bool, time.Time, or lists of those.
// Maps and structs become JSON strings.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int64, float64, time.Time:
		return x
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		if uint64(x) > 1<<63-1 {
			return fmt.Sprint(x)
		}
		return int64(x)
	case uint64:
		if x > 1<<63-1 {
			return fmt.Sprint(x)
		}
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		if x == nil {
			return nil
		}
		if x.IsInt64() {
			return x.Int64()
		}
		return x.String()
	case uuid.UUID:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		return jsonString(x)
	case duckdb.Decimal:
		return x.Float64()
	case interface{ Float64() float64 }:
		return x.Float64()
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return fmt.Sprint(x)
		}
		if _, again := inner.(driver.Valuer); again {
			return fmt.Sprint(inner)
		}
		return Normalize(inner)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Len() == 16 && rv.Type().Elem() == reflect.TypeOf(byte(0)) {
			var id uuid.UUID
			reflect.Copy(reflect.ValueOf(id[:]), rv)
			return id.String()
		}
		fallthrough
	case reflect.Slice:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map, reflect.Struct:
		return jsonString(v)
	}
	return fmt.Sprint(v)
}

func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// quoteIdent double-quotes an identifier for DuckDB and PostgreSQL.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// qualified renders the double-quoted name of ref, skipping empty parts.
func qualified(ref schema.TableRef) string {
	var parts []string
	for _, p := range []string{ref.Catalog, ref.Schema, ref.Name} {
		if p != "" {
			parts = append(parts, quoteIdent(p))
		}
	}
	return strings.Join(parts, ".")
}
