package relational

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"graphbridge/internal/schema"
)

// PostgresCatalog reads metadata from the PostgreSQL system catalogs. The
// catalog argument of ListTables is ignored; the DSN selects the database.
type PostgresCatalog struct {
	pool  *pgxpool.Pool
	namer constraintNamer
}

// NewPostgresCatalog opens a pool and verifies connectivity.
func NewPostgresCatalog(ctx context.Context, dsn string, conv schema.Conventions) (*PostgresCatalog, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresCatalog{pool: pool, namer: newConstraintNamer(conv)}, nil
}

func (c *PostgresCatalog) Close() error {
	c.pool.Close()
	return nil
}

// ListTables returns the base tables of schemaName.
func (c *PostgresCatalog) ListTables(ctx context.Context, _ string, schemaName string) ([]string, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schemaName, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables in %s: %w", schemaName, err)
	}
	return names, nil
}

// DescribeTable reads primary and foreign keys from pg_constraint, rendered
// with pg_get_constraintdef.
func (c *PostgresCatalog) DescribeTable(ctx context.Context, ref schema.TableRef) (schema.TableDescriptor, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT con.contype::text, pg_get_constraintdef(con.oid)
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace
		WHERE nsp.nspname = $1 AND rel.relname = $2 AND con.contype IN ('p', 'f')
		ORDER BY con.contype DESC, con.conname`, ref.Schema, ref.Name)
	if err != nil {
		return schema.TableDescriptor{}, fmt.Errorf("describe %s: %w", ref, err)
	}
	defer rows.Close()

	desc := schema.TableDescriptor{Ref: ref}
	fk := 0
	for rows.Next() {
		var kind, def string
		if err := rows.Scan(&kind, &def); err != nil {
			return schema.TableDescriptor{}, fmt.Errorf("scan constraint of %s: %w", ref, err)
		}
		name := c.namer.primary(ref.Name)
		if kind == "f" {
			fk++
			name = c.namer.foreign(ref.Name, fk)
		}
		desc.Constraints = append(desc.Constraints, schema.ConstraintDescriptor{Name: name, Definition: def})
	}
	if err := rows.Err(); err != nil {
		return schema.TableDescriptor{}, fmt.Errorf("describe %s: %w", ref, err)
	}
	return desc, nil
}

// ReadRows streams every row of ref.
func (c *PostgresCatalog) ReadRows(ctx context.Context, ref schema.TableRef) (RowIterator, error) {
	rows, err := c.pool.Query(ctx, "SELECT * FROM "+pgx.Identifier{ref.Schema, ref.Name}.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return &pgxRows{rows: rows}, nil
}

// pgxRows adapts pgx.Rows to RowIterator.
type pgxRows struct {
	rows    pgx.Rows
	current map[string]any
	err     error
}

func (r *pgxRows) Next(ctx context.Context) bool {
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
	values, err := r.rows.Values()
	if err != nil {
		r.err = fmt.Errorf("decode row: %w", err)
		return false
	}
	fields := r.rows.FieldDescriptions()
	row := make(map[string]any, len(fields))
	for i, f := range fields {
		row[f.Name] = Normalize(values[i])
	}
	r.current = row
	return true
}

func (r *pgxRows) Row() map[string]any { return r.current }
func (r *pgxRows) Err() error          { return r.err }

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}
