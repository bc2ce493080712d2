package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"graphbridge/internal/database/relational"
	"graphbridge/internal/schema"
)

// ErrCypherUnsupported is returned by MemoryGraph.ExecuteCypher.
var ErrCypherUnsupported = errors.New("cypher queries are not supported by the in-memory graph")

// MemoryGraph is an in-process GraphClient with the same write semantics as
// Neo4jClient: nodes are overwritten by key and relationships are merged per
// (start, type, end). It backs dry runs and tests.
type MemoryGraph struct {
	mu    sync.RWMutex
	nodes map[string]map[string]map[string]any // label -> key -> properties
	keys  map[string]string                    // label -> unique key property
	rels  map[string]map[relKey]MemoryRelationship
}

type relKey struct {
	startLabel, start string
	endLabel, end     string
}

// MemoryRelationship is a stored relationship.
type MemoryRelationship struct {
	Type       string
	StartLabel string
	StartKey   any
	EndLabel   string
	EndKey     any
	Properties map[string]any
}

// NewMemoryGraph returns an empty graph.
func NewMemoryGraph() *MemoryGraph {
	g := &MemoryGraph{}
	g.reset()
	return g
}

func (g *MemoryGraph) reset() {
	g.nodes = map[string]map[string]map[string]any{}
	g.keys = map[string]string{}
	g.rels = map[string]map[relKey]MemoryRelationship{}
}

func (g *MemoryGraph) Reset(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
	return nil
}

func (g *MemoryGraph) Close(context.Context) error { return nil }

func (g *MemoryGraph) WriteNodes(ctx context.Context, plan schema.NodeLoadPlan, rows relational.RowIterator) (WriteStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.keys[plan.Label] = plan.UniqueKey
	byKey := g.nodes[plan.Label]
	if byKey == nil {
		byKey = map[string]map[string]any{}
		g.nodes[plan.Label] = byKey
	}

	var stats WriteStats
	for rows.Next(ctx) {
		stats.RowsRead++
		row := rows.Row()
		key := row[plan.UniqueKey]
		if key == nil {
			stats.Skipped++
			continue
		}
		props := make(map[string]any, len(row))
		for k, v := range row {
			if v != nil {
				props[k] = v
			}
		}
		byKey[valueKey(key)] = props
		stats.Written++
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("read rows: %w", err)
	}
	return stats, nil
}

func (g *MemoryGraph) WriteRelationships(ctx context.Context, plan schema.RelationshipLoadPlan, rows relational.RowIterator) (WriteStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	byEnds := g.rels[plan.Type]
	if byEnds == nil {
		byEnds = map[relKey]MemoryRelationship{}
		g.rels[plan.Type] = byEnds
	}

	var stats WriteStats
	for rows.Next(ctx) {
		stats.RowsRead++
		src, tgt, props := relationshipRow(plan, rows.Row())
		if src == nil || tgt == nil {
			stats.Skipped++
			continue
		}
		starts := g.match(plan.SourceLabel, plan.Source.Referenced, src)
		ends := g.match(plan.TargetLabel, plan.Target.Referenced, tgt)
		if len(starts) == 0 || len(ends) == 0 {
			stats.Skipped++
			continue
		}
		for _, s := range starts {
			for _, e := range ends {
				k := relKey{startLabel: plan.SourceLabel, start: s, endLabel: plan.TargetLabel, end: e}
				byEnds[k] = MemoryRelationship{
					Type:       plan.Type,
					StartLabel: plan.SourceLabel,
					StartKey:   g.nodes[plan.SourceLabel][s][g.keys[plan.SourceLabel]],
					EndLabel:   plan.TargetLabel,
					EndKey:     g.nodes[plan.TargetLabel][e][g.keys[plan.TargetLabel]],
					Properties: dropNil(props),
				}
				stats.Written++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("read rows: %w", err)
	}
	return stats, nil
}

// match returns the keys of label nodes whose prop equals value.
func (g *MemoryGraph) match(label, prop string, value any) []string {
	byKey := g.nodes[label]
	if byKey == nil {
		return nil
	}
	want := valueKey(value)
	if g.keys[label] == prop {
		if _, ok := byKey[want]; ok {
			return []string{want}
		}
		return nil
	}
	var out []string
	for k, props := range byKey {
		if v, ok := props[prop]; ok && valueKey(v) == want {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Node returns the properties of the label node with the given key.
func (g *MemoryGraph) Node(label string, key any) (map[string]any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	props, ok := g.nodes[label][valueKey(key)]
	return props, ok
}

// Relationships returns the stored relationships of one type.
func (g *MemoryGraph) Relationships(typ string) []MemoryRelationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]MemoryRelationship, 0, len(g.rels[typ]))
	for _, r := range g.rels[typ] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i].StartKey, out[i].EndKey) < fmt.Sprint(out[j].StartKey, out[j].EndKey)
	})
	return out
}

func (g *MemoryGraph) Stats(context.Context) (GraphStats, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	stats := GraphStats{Nodes: map[string]int64{}, Relationships: map[string]int64{}}
	for label, byKey := range g.nodes {
		if len(byKey) > 0 {
			stats.Nodes[label] = int64(len(byKey))
		}
	}
	for typ, byEnds := range g.rels {
		if len(byEnds) > 0 {
			stats.Relationships[typ] = int64(len(byEnds))
		}
	}
	return stats, nil
}

// Schema derives the schema from stored elements. Property types are taken
// from the first value seen.
func (g *MemoryGraph) Schema(context.Context) (GraphSchema, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	gs := GraphSchema{NodeProperties: map[string][]Property{}, RelProperties: map[string][]Property{}}
	for label, byKey := range g.nodes {
		if len(byKey) == 0 {
			continue
		}
		gs.NodeProperties[label] = collectProperties(func(yield func(map[string]any)) {
			for _, props := range byKey {
				yield(props)
			}
		})
	}

	seen := map[Pattern]bool{}
	for typ, byEnds := range g.rels {
		if len(byEnds) == 0 {
			continue
		}
		gs.RelProperties[typ] = collectProperties(func(yield func(map[string]any)) {
			for _, r := range byEnds {
				yield(r.Properties)
			}
		})
		for k := range byEnds {
			p := Pattern{Start: k.startLabel, Type: typ, End: k.endLabel}
			if !seen[p] {
				seen[p] = true
				gs.Relationships = append(gs.Relationships, p)
			}
		}
	}
	sortPatterns(gs.Relationships)
	return gs, nil
}

func (g *MemoryGraph) ExecuteCypher(context.Context, string) ([]map[string]any, error) {
	return nil, ErrCypherUnsupported
}

func collectProperties(each func(yield func(map[string]any))) []Property {
	types := map[string]string{}
	each(func(props map[string]any) {
		for k, v := range props {
			if _, ok := types[k]; !ok {
				types[k] = goTypeName(v)
			}
		}
	})
	out := make([]Property, 0, len(types))
	for k, t := range types {
		out = append(out, Property{Name: k, Type: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func goTypeName(v any) string {
	switch v.(type) {
	case int64:
		return "INTEGER"
	case float64:
		return "FLOAT"
	case bool:
		return "BOOLEAN"
	case time.Time:
		return "DATE_TIME"
	case []any:
		return "LIST"
	default:
		return "STRING"
	}
}

func dropNil(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// valueKey gives property values a comparable form; 1 and "1" differ.
func valueKey(v any) string {
	return fmt.Sprintf("%#v", v)
}
