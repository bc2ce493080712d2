// Package schema turns relational key constraints into graph load plans.
package schema

import (
	"fmt"
	"strings"
)

// TableRef identifies a table inside a catalog.
type TableRef struct {
	Catalog string
	Schema  string
	Name    string
}

// String returns the dotted, unquoted form catalog.schema.name.
func (r TableRef) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Catalog, r.Schema, r.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// Quoted returns the backtick-quoted form used by Spark SQL.
func (r TableRef) Quoted() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Catalog, r.Schema, r.Name} {
		if p != "" {
			parts = append(parts, "`"+strings.ReplaceAll(p, "`", "``")+"`")
		}
	}
	return strings.Join(parts, ".")
}

// ConstraintDescriptor is one named constraint row as reported by a catalog,
// e.g. Name "artist_pk", Definition "PRIMARY KEY (`artist_id`)".
type ConstraintDescriptor struct {
	Name       string
	Definition string
}

// TableDescriptor is a table plus the constraint rows fetched for it.
// It is not modified after the catalog returns it.
type TableDescriptor struct {
	Ref         TableRef
	Constraints []ConstraintDescriptor
}

// NodeLoadPlan describes how one node table becomes labeled graph nodes.
type NodeLoadPlan struct {
	Table     TableRef
	Label     string
	UniqueKey string
}

// KeyMapping pairs a column of the join table with the key property of the
// node it points at.
type KeyMapping struct {
	Local      string
	Referenced string
}

// String renders the mapping in the connector's "local:referenced" form.
func (m KeyMapping) String() string {
	return m.Local + ":" + m.Referenced
}

// RelationshipLoadPlan describes how one join table becomes typed edges.
type RelationshipLoadPlan struct {
	Table       TableRef
	Type        string
	SourceLabel string
	Source      KeyMapping
	TargetLabel string
	Target      KeyMapping
}

// Describe renders the resolved plan for diagnostics.
func (p RelationshipLoadPlan) Describe() string {
	return fmt.Sprintf(
		"For table %s we have:\n- source_label: %s\n- source_key: %s\n- target_label: %s\n- target_key: %s\n- relationship name: %s",
		p.Table.Name, p.SourceLabel, p.Source, p.TargetLabel, p.Target, p.Type,
	)
}

// KeyColumns returns the join-table columns consumed by the endpoint match.
func (p RelationshipLoadPlan) KeyColumns() []string {
	return []string{p.Source.Local, p.Target.Local}
}
