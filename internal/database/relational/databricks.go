package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"

	"graphbridge/internal/schema"
)

// constraintsHeader marks the constraint section of DESCRIBE TABLE EXTENDED.
const constraintsHeader = "# Constraints"

// DatabricksCatalog reads Unity Catalog metadata through a SQL warehouse.
type DatabricksCatalog struct {
	db *sql.DB
}

// NewDatabricksCatalog connects to a SQL warehouse with a personal access token.
func NewDatabricksCatalog(host, httpPath, token string) (*DatabricksCatalog, error) {
	connector, err := dbsql.NewConnector(
		dbsql.WithServerHostname(strings.TrimPrefix(host, "https://")),
		dbsql.WithPort(443),
		dbsql.WithHTTPPath(httpPath),
		dbsql.WithAccessToken(token),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create databricks connector: %w", err)
	}
	return &DatabricksCatalog{db: sql.OpenDB(connector)}, nil
}

func (c *DatabricksCatalog) Close() error {
	return c.db.Close()
}

// ListTables runs SHOW TABLES IN catalog.schema.
func (c *DatabricksCatalog) ListTables(ctx context.Context, catalog, schemaName string) ([]string, error) {
	namespace := schema.TableRef{Catalog: catalog, Schema: schemaName}.Quoted()
	rows, err := c.db.QueryContext(ctx, "SHOW TABLES IN "+namespace)
	if err != nil {
		return nil, fmt.Errorf("list tables in %s.%s: %w", catalog, schemaName, err)
	}
	it, err := newSQLRows(rows)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var names []string
	for it.Next(ctx) {
		row := it.Row()
		if tmp, _ := row["isTemporary"].(bool); tmp {
			continue
		}
		if name, ok := row["tableName"].(string); ok {
			names = append(names, name)
		}
	}
	return names, it.Err()
}

// DescribeTable runs DESCRIBE TABLE EXTENDED and keeps the constraint rows.
func (c *DatabricksCatalog) DescribeTable(ctx context.Context, ref schema.TableRef) (schema.TableDescriptor, error) {
	rows, err := c.db.QueryContext(ctx, "DESCRIBE TABLE EXTENDED "+ref.Quoted())
	if err != nil {
		return schema.TableDescriptor{}, fmt.Errorf("describe %s: %w", ref, err)
	}
	defer rows.Close()

	var described []describeRow
	for rows.Next() {
		var name, dataType, comment sql.NullString
		if err := rows.Scan(&name, &dataType, &comment); err != nil {
			return schema.TableDescriptor{}, fmt.Errorf("scan describe row of %s: %w", ref, err)
		}
		described = append(described, describeRow{Name: name.String, Value: dataType.String})
	}
	if err := rows.Err(); err != nil {
		return schema.TableDescriptor{}, fmt.Errorf("describe %s: %w", ref, err)
	}
	return schema.TableDescriptor{Ref: ref, Constraints: constraintRows(described)}, nil
}

// ReadRows streams every row of ref.
func (c *DatabricksCatalog) ReadRows(ctx context.Context, ref schema.TableRef) (RowIterator, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT * FROM "+ref.Quoted())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return newSQLRows(rows)
}

// describeRow is one (col_name, data_type) pair of DESCRIBE output.
type describeRow struct {
	Name  string
	Value string
}

// constraintRows returns the rows of the "# Constraints" section. Without
// that section every named row is returned and the plan builders filter by
// suffix.
func constraintRows(rows []describeRow) []schema.ConstraintDescriptor {
	var section, all []schema.ConstraintDescriptor
	inSection, found := false, false
	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		switch {
		case name == constraintsHeader:
			inSection, found = true, true
			continue
		case inSection && (name == "" || strings.HasPrefix(name, "#")):
			inSection = false
			continue
		}
		if name == "" {
			continue
		}
		d := schema.ConstraintDescriptor{Name: name, Definition: strings.TrimSpace(r.Value)}
		all = append(all, d)
		if inSection {
			section = append(section, d)
		}
	}
	if found {
		return section
	}
	return all
}
