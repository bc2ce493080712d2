package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Property is a property key with its reported type.
type Property struct {
	Name string `json:"property"`
	Type string `json:"type"`
}

// Pattern is one (start)-[type]->(end) combination present in the graph.
type Pattern struct {
	Start string `json:"start"`
	Type  string `json:"type"`
	End   string `json:"end"`
}

func (p Pattern) String() string {
	return fmt.Sprintf("(:%s)-[:%s]->(:%s)", p.Start, p.Type, p.End)
}

// GraphSchema describes labels, relationship types and their properties.
type GraphSchema struct {
	NodeProperties map[string][]Property `json:"node_props"`
	RelProperties  map[string][]Property `json:"rel_props"`
	Relationships  []Pattern             `json:"relationships"`
}

// String renders the schema in the text form embedded into prompts.
func (s GraphSchema) String() string {
	var b strings.Builder
	b.WriteString("Node properties are the following:\n")
	writeProps(&b, s.NodeProperties)
	b.WriteString("Relationship properties are the following:\n")
	writeProps(&b, s.RelProperties)
	b.WriteString("The relationships are the following:\n")
	for _, p := range s.Relationships {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeProps(b *strings.Builder, props map[string][]Property) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts := make([]string, 0, len(props[name]))
		for _, p := range props[name] {
			parts = append(parts, p.Name+": "+p.Type)
		}
		fmt.Fprintf(b, "%s {%s}\n", name, strings.Join(parts, ", "))
	}
}

// HasPattern reports whether start-[typ]->end exists in the schema.
func (s GraphSchema) HasPattern(start, typ, end string) bool {
	for _, p := range s.Relationships {
		if p.Start == start && p.Type == typ && p.End == end {
			return true
		}
	}
	return false
}

// Labels returns every node label mentioned in the schema, sorted.
func (s GraphSchema) Labels() []string {
	seen := map[string]bool{}
	for l := range s.NodeProperties {
		seen[l] = true
	}
	for _, p := range s.Relationships {
		seen[p.Start] = true
		seen[p.End] = true
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// sortPatterns orders patterns for stable rendering.
func sortPatterns(ps []Pattern) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Start != ps[j].Start {
			return ps[i].Start < ps[j].Start
		}
		if ps[i].Type != ps[j].Type {
			return ps[i].Type < ps[j].Type
		}
		return ps[i].End < ps[j].End
	})
}

// Schema introspects labels, relationship types, their properties and the
// distinct relationship patterns.
func (c *Neo4jClient) Schema(ctx context.Context) (GraphSchema, error) {
	gs := GraphSchema{
		NodeProperties: map[string][]Property{},
		RelProperties:  map[string][]Property{},
	}

	nodeRows, err := c.read(ctx, `
		CALL db.schema.nodeTypeProperties()
		YIELD nodeLabels, propertyName, propertyTypes
		RETURN nodeLabels, propertyName, propertyTypes`, nil)
	if err != nil {
		return gs, fmt.Errorf("read node properties: %w", err)
	}
	for _, row := range nodeRows {
		labels, _ := row["nodeLabels"].([]any)
		for _, l := range labels {
			label, _ := l.(string)
			addProperty(gs.NodeProperties, label, row)
		}
	}

	relRows, err := c.read(ctx, `
		CALL db.schema.relTypeProperties()
		YIELD relType, propertyName, propertyTypes
		RETURN relType, propertyName, propertyTypes`, nil)
	if err != nil {
		return gs, fmt.Errorf("read relationship properties: %w", err)
	}
	for _, row := range relRows {
		relType, _ := row["relType"].(string)
		addProperty(gs.RelProperties, trimRelType(relType), row)
	}

	patternRows, err := c.read(ctx, `
		MATCH (s)-[r]->(t)
		UNWIND labels(s) AS startLabel
		UNWIND labels(t) AS endLabel
		RETURN DISTINCT startLabel, type(r) AS type, endLabel`, nil)
	if err != nil {
		return gs, fmt.Errorf("read relationship patterns: %w", err)
	}
	for _, row := range patternRows {
		start, _ := row["startLabel"].(string)
		typ, _ := row["type"].(string)
		end, _ := row["endLabel"].(string)
		gs.Relationships = append(gs.Relationships, Pattern{Start: start, Type: typ, End: end})
	}
	sortPatterns(gs.Relationships)
	return gs, nil
}

// addProperty records one nodeTypeProperties/relTypeProperties row. Labels
// without properties are still registered.
func addProperty(dst map[string][]Property, owner string, row map[string]any) {
	if owner == "" {
		return
	}
	name, _ := row["propertyName"].(string)
	if name == "" {
		if _, ok := dst[owner]; !ok {
			dst[owner] = nil
		}
		return
	}
	var types []string
	if raw, ok := row["propertyTypes"].([]any); ok {
		for _, t := range raw {
			if s, ok := t.(string); ok {
				types = append(types, cypherTypeName(s))
			}
		}
	}
	dst[owner] = append(dst[owner], Property{Name: name, Type: strings.Join(types, " | ")})
}

// trimRelType turns ":`PERFORMS`" into "PERFORMS".
func trimRelType(s string) string {
	s = strings.TrimPrefix(s, ":")
	s = strings.TrimPrefix(s, "`")
	s = strings.TrimSuffix(s, "`")
	return strings.ReplaceAll(s, "``", "`")
}

// cypherTypeName maps db.schema type names to the names used in prompts.
func cypherTypeName(t string) string {
	switch t {
	case "Long", "Integer":
		return "INTEGER"
	case "Double", "Float":
		return "FLOAT"
	case "String":
		return "STRING"
	case "Boolean":
		return "BOOLEAN"
	case "LongArray":
		return "LIST<INTEGER>"
	case "DoubleArray":
		return "LIST<FLOAT>"
	case "StringArray":
		return "LIST<STRING>"
	default:
		return strings.ToUpper(t)
	}
}
