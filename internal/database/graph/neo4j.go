package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"graphbridge/internal/database/relational"
	"graphbridge/internal/logging"
	"graphbridge/internal/schema"
)

const defaultBatchSize = 1000

// Neo4jClient implements GraphClient for Neo4j.
type Neo4jClient struct {
	driver    neo4j.DriverWithContext
	dbName    string
	batchSize int
	log       *logging.Logger
}

// Neo4jOption configures the client.
type Neo4jOption func(*Neo4jClient)

// WithBatchSize sets the number of rows sent per write transaction.
func WithBatchSize(n int) Neo4jOption {
	return func(c *Neo4jClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger attaches a logger for per-batch diagnostics.
func WithLogger(log *logging.Logger) Neo4jOption {
	return func(c *Neo4jClient) {
		if log != nil {
			c.log = log
		}
	}
}

// NewNeo4jClient connects to Neo4j and verifies connectivity. An empty dbName
// selects the server default database.
func NewNeo4jClient(uri, username, password, dbName string, opts ...Neo4jOption) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = 10
		cfg.SocketConnectTimeout = 10 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	c := &Neo4jClient{
		driver:    driver,
		dbName:    dbName,
		batchSize: defaultBatchSize,
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// Reset deletes all data in the graph.
func (c *Neo4jClient) Reset(ctx context.Context) error {
	if err := c.runWrite(ctx, "MATCH (n) DETACH DELETE n", nil); err != nil {
		return fmt.Errorf("reset graph: %w", err)
	}
	return nil
}

// WriteNodes ensures a uniqueness constraint on (label, key) and upserts the
// rows in batches. Existing nodes with the same key are overwritten. Rows
// with a null key are skipped.
func (c *Neo4jClient) WriteNodes(ctx context.Context, plan schema.NodeLoadPlan, rows relational.RowIterator) (WriteStats, error) {
	label, key := quoteName(plan.Label), quoteName(plan.UniqueKey)

	constraint := fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE", label, key)
	if err := c.runWrite(ctx, constraint, nil); err != nil {
		return WriteStats{}, fmt.Errorf("ensure unique key on %s.%s: %w", plan.Label, plan.UniqueKey, err)
	}

	query := fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (n:%s {%s: row.key})
		SET n = row.props
		RETURN count(n) AS written`, label, key)

	return c.writeBatches(ctx, rows, query, func(row map[string]any) (map[string]any, bool) {
		k := row[plan.UniqueKey]
		if k == nil {
			return nil, false
		}
		return map[string]any{"key": k, "props": row}, true
	})
}

// WriteRelationships matches both endpoints by their referenced key and
// merges one relationship per row. The row's remaining columns become the
// relationship properties.
func (c *Neo4jClient) WriteRelationships(ctx context.Context, plan schema.RelationshipLoadPlan, rows relational.RowIterator) (WriteStats, error) {
	query := fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (s:%s {%s: row.src})
		MATCH (t:%s {%s: row.tgt})
		MERGE (s)-[r:%s]->(t)
		SET r = row.props
		RETURN count(r) AS written`,
		quoteName(plan.SourceLabel), quoteName(plan.Source.Referenced),
		quoteName(plan.TargetLabel), quoteName(plan.Target.Referenced),
		quoteName(plan.Type))

	return c.writeBatches(ctx, rows, query, func(row map[string]any) (map[string]any, bool) {
		src, tgt, props := relationshipRow(plan, row)
		if src == nil || tgt == nil {
			return nil, false
		}
		return map[string]any{"src": src, "tgt": tgt, "props": props}, true
	})
}

// writeBatches drains rows through toParam and runs query once per batch.
// The query must return a single count column.
func (c *Neo4jClient) writeBatches(
	ctx context.Context,
	rows relational.RowIterator,
	query string,
	toParam func(map[string]any) (map[string]any, bool),
) (WriteStats, error) {
	var stats WriteStats
	batch := make([]any, 0, c.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.runCount(ctx, query, map[string]any{"rows": batch})
		if err != nil {
			return err
		}
		stats.Written += n
		stats.Skipped += len(batch) - n
		c.log.Debug("batch written", "rows", len(batch), "written", n)
		batch = make([]any, 0, c.batchSize)
		return nil
	}

	for rows.Next(ctx) {
		stats.RowsRead++
		param, ok := toParam(rows.Row())
		if !ok {
			stats.Skipped++
			continue
		}
		batch = append(batch, param)
		if len(batch) >= c.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("read rows: %w", err)
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (c *Neo4jClient) runWrite(ctx context.Context, query string, params map[string]any) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (c *Neo4jClient) runCount(ctx context.Context, query string, params map[string]any) (int, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.dbName})
	defer session.Close(ctx)

	n, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		count, _ := rec.Values[0].(int64)
		return int(count), nil
	})
	if err != nil {
		return 0, fmt.Errorf("write batch: %w", err)
	}
	return n.(int), nil
}

// Stats counts nodes per label and relationships per type.
func (c *Neo4jClient) Stats(ctx context.Context) (GraphStats, error) {
	stats := GraphStats{Nodes: map[string]int64{}, Relationships: map[string]int64{}}

	nodes, err := c.ExecuteCypher(ctx, "MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS count")
	if err != nil {
		return stats, err
	}
	for _, row := range nodes {
		label, _ := row["label"].(string)
		count, _ := row["count"].(int64)
		stats.Nodes[label] = count
	}

	rels, err := c.ExecuteCypher(ctx, "MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count")
	if err != nil {
		return stats, err
	}
	for _, row := range rels {
		typ, _ := row["type"].(string)
		count, _ := row["count"].(int64)
		stats.Relationships[typ] = count
	}
	return stats, nil
}
