package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// ExecuteCypher runs query in a read transaction and returns the records as
// maps. Write clauses are rejected by the server.
func (c *Neo4jClient) ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error) {
	return c.read(ctx, query, nil)
}

func (c *Neo4jClient) read(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]map[string]any, 0, len(records))
		for _, record := range records {
			row := make(map[string]any, len(record.Keys))
			for i, key := range record.Keys {
				row[key] = convertNeo4jValue(record.Values[i])
			}
			rows = append(rows, row)
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}
	return result.([]map[string]any), nil
}

// convertNeo4jValue flattens driver types into plain Go values so results can
// be rendered into prompts and JSON.
func convertNeo4jValue(val any) any {
	switch v := val.(type) {
	case neo4j.Node:
		return map[string]any{
			"labels":     v.Labels,
			"properties": convertNeo4jValue(v.Props),
		}
	case neo4j.Relationship:
		return map[string]any{
			"type":       v.Type,
			"properties": convertNeo4jValue(v.Props),
		}
	case neo4j.Path:
		nodes := make([]any, len(v.Nodes))
		for i, n := range v.Nodes {
			nodes[i] = convertNeo4jValue(n)
		}
		rels := make([]any, len(v.Relationships))
		for i, r := range v.Relationships {
			rels[i] = convertNeo4jValue(r)
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case dbtype.Date:
		return v.String()
	case dbtype.LocalDateTime:
		return v.String()
	case dbtype.LocalTime:
		return v.String()
	case dbtype.Time:
		return v.String()
	case dbtype.Duration:
		return v.String()
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = convertNeo4jValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = convertNeo4jValue(item)
		}
		return out
	default:
		return v
	}
}
