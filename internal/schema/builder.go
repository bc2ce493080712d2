package schema

import (
	"fmt"
	"strings"
)

// Conventions holds the naming rules the plan builders rely on.
type Conventions struct {
	PrimaryKeySuffix string // constraint name suffix marking a primary key (default "_pk")
	ForeignKeySuffix string // constraint name suffix marking a foreign key (default "_fk")
	SourcePrefix     string // join-table column prefix marking the source side (default "source_")
	Separator        string // relationship table name separator (default "-")
}

// DefaultConventions returns the Unity Catalog naming conventions.
func DefaultConventions() Conventions {
	return Conventions{
		PrimaryKeySuffix: "_pk",
		ForeignKeySuffix: "_fk",
		SourcePrefix:     "source_",
		Separator:        "-",
	}
}

// PlanBuilder resolves table descriptors into load plans. It holds no state
// besides its conventions and performs no I/O.
type PlanBuilder struct {
	conv Conventions
}

// NewPlanBuilder returns a builder; zero-valued convention fields fall back
// to the defaults.
func NewPlanBuilder(conv Conventions) *PlanBuilder {
	def := DefaultConventions()
	if conv.PrimaryKeySuffix == "" {
		conv.PrimaryKeySuffix = def.PrimaryKeySuffix
	}
	if conv.ForeignKeySuffix == "" {
		conv.ForeignKeySuffix = def.ForeignKeySuffix
	}
	if conv.SourcePrefix == "" {
		conv.SourcePrefix = def.SourcePrefix
	}
	if conv.Separator == "" {
		conv.Separator = def.Separator
	}
	return &PlanBuilder{conv: conv}
}

// NodePlan builds the plan for a node table from its primary-key constraint.
func (b *PlanBuilder) NodePlan(desc TableDescriptor) (NodeLoadPlan, error) {
	var columns []string
	seen := make(map[string]bool)

	for _, c := range desc.Constraints {
		if !hasSuffixFold(c.Name, b.conv.PrimaryKeySuffix) {
			continue
		}
		kc, err := b.parse(desc, c)
		if err != nil {
			return NodeLoadPlan{}, err
		}
		pk, ok := kc.(PrimaryKey)
		if !ok {
			return NodeLoadPlan{}, &ConstraintSyntaxError{
				Table: desc.Ref.Name, Constraint: c.Name, Definition: c.Definition,
				Msg: "constraint named as a primary key is not a PRIMARY KEY definition",
			}
		}
		for _, col := range pk.Columns {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}

	switch len(columns) {
	case 0:
		return NodeLoadPlan{}, &MissingKeyError{Table: desc.Ref.Name}
	case 1:
		return NodeLoadPlan{Table: desc.Ref, Label: desc.Ref.Name, UniqueKey: columns[0]}, nil
	default:
		return NodeLoadPlan{}, &AmbiguousKeyError{Table: desc.Ref.Name, Columns: columns}
	}
}

// RelationshipType derives the relationship type from a join table name:
// the segment after the first separator, uppercased.
func (b *PlanBuilder) RelationshipType(table string) (string, error) {
	segments := strings.Split(table, b.conv.Separator)
	if len(segments) < 2 {
		return "", &MalformedRelationshipError{
			Table:  table,
			Reason: fmt.Sprintf("name has no %q separator to take the relationship type from", b.conv.Separator),
		}
	}
	name := strings.TrimSpace(segments[1])
	if name == "" {
		return "", &MalformedRelationshipError{Table: table, Reason: "relationship type segment is empty"}
	}
	return strings.ToUpper(name), nil
}

// RelationshipPlan builds the plan for a join table from its two foreign keys.
// Exactly one of them must have a local column carrying the source prefix.
func (b *PlanBuilder) RelationshipPlan(desc TableDescriptor) (RelationshipLoadPlan, error) {
	table := desc.Ref.Name
	relType, err := b.RelationshipType(table)
	if err != nil {
		return RelationshipLoadPlan{}, err
	}

	var sources, targets []ForeignKey
	for _, c := range desc.Constraints {
		if !hasSuffixFold(c.Name, b.conv.ForeignKeySuffix) {
			continue
		}
		kc, err := b.parse(desc, c)
		if err != nil {
			return RelationshipLoadPlan{}, err
		}
		fk, ok := kc.(ForeignKey)
		if !ok {
			return RelationshipLoadPlan{}, &ConstraintSyntaxError{
				Table: table, Constraint: c.Name, Definition: c.Definition,
				Msg: "constraint named as a foreign key is not a FOREIGN KEY definition",
			}
		}
		if strings.HasPrefix(fk.LocalColumn, b.conv.SourcePrefix) {
			sources = append(sources, fk)
		} else {
			targets = append(targets, fk)
		}
	}

	total := len(sources) + len(targets)
	switch {
	case total < 2:
		return RelationshipLoadPlan{}, &MalformedRelationshipError{
			Table: table, Reason: fmt.Sprintf("expected two foreign keys, found %d", total),
		}
	case total > 2:
		return RelationshipLoadPlan{}, &MalformedRelationshipError{
			Table: table, Reason: fmt.Sprintf("found %d foreign keys, only one source and one target are supported", total),
		}
	case len(sources) == 0:
		return RelationshipLoadPlan{}, &MalformedRelationshipError{
			Table: table, Reason: fmt.Sprintf("no foreign key column starts with %q", b.conv.SourcePrefix),
		}
	case len(sources) > 1:
		return RelationshipLoadPlan{}, &MalformedRelationshipError{
			Table: table, Reason: fmt.Sprintf("both foreign key columns start with %q", b.conv.SourcePrefix),
		}
	}

	src, tgt := sources[0], targets[0]
	return RelationshipLoadPlan{
		Table:       desc.Ref,
		Type:        relType,
		SourceLabel: src.ReferencedTable.Name,
		Source:      KeyMapping{Local: src.LocalColumn, Referenced: src.ReferencedColumn},
		TargetLabel: tgt.ReferencedTable.Name,
		Target:      KeyMapping{Local: tgt.LocalColumn, Referenced: tgt.ReferencedColumn},
	}, nil
}

func (b *PlanBuilder) parse(desc TableDescriptor, c ConstraintDescriptor) (KeyConstraint, error) {
	kc, err := ParseConstraint(c.Definition)
	if err != nil {
		if se, ok := err.(*ConstraintSyntaxError); ok {
			se.Table = desc.Ref.Name
			se.Constraint = c.Name
		}
		return nil, err
	}
	return kc, nil
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
