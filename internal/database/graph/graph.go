// Package graph writes load plans into a property graph and reads the graph
// back for question answering.
package graph

import (
	"context"
	"slices"
	"strings"

	"graphbridge/internal/database/relational"
	"graphbridge/internal/schema"
)

// Writer is the bulk write contract used by the loader.
type Writer interface {
	// WriteNodes upserts one node per row, keyed by plan.UniqueKey.
	WriteNodes(ctx context.Context, plan schema.NodeLoadPlan, rows relational.RowIterator) (WriteStats, error)
	// WriteRelationships links existing endpoint nodes; rows whose endpoints
	// are missing are skipped.
	WriteRelationships(ctx context.Context, plan schema.RelationshipLoadPlan, rows relational.RowIterator) (WriteStats, error)
	// Reset deletes all nodes and relationships.
	Reset(ctx context.Context) error
}

// GraphClient is a Writer that can also be inspected and queried.
type GraphClient interface {
	Writer
	Schema(ctx context.Context) (GraphSchema, error)
	Stats(ctx context.Context) (GraphStats, error)
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// WriteStats counts the outcome of one table write.
type WriteStats struct {
	RowsRead int
	Written  int
	Skipped  int
}

// Add accumulates other into s.
func (s *WriteStats) Add(other WriteStats) {
	s.RowsRead += other.RowsRead
	s.Written += other.Written
	s.Skipped += other.Skipped
}

// GraphStats holds element counts per label and relationship type.
type GraphStats struct {
	Nodes         map[string]int64
	Relationships map[string]int64
}

// TotalNodes sums node counts over all labels.
func (s GraphStats) TotalNodes() int64 {
	var n int64
	for _, c := range s.Nodes {
		n += c
	}
	return n
}

// TotalRelationships sums relationship counts over all types.
func (s GraphStats) TotalRelationships() int64 {
	var n int64
	for _, c := range s.Relationships {
		n += c
	}
	return n
}

// relationshipRow splits a relationship table row into endpoint keys and
// properties. The two foreign key columns are not stored on the relationship.
func relationshipRow(plan schema.RelationshipLoadPlan, row map[string]any) (src, tgt any, props map[string]any) {
	keys := plan.KeyColumns()
	props = make(map[string]any, len(row))
	for k, v := range row {
		if slices.Contains(keys, k) {
			continue
		}
		props[k] = v
	}
	return row[keys[0]], row[keys[1]], props
}

// quoteName backtick-escapes a label, relationship type or property key.
func quoteName(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
