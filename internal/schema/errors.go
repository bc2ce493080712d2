package schema

import (
	"fmt"
	"strings"
)

// MissingKeyError is returned when a node table has no primary-key constraint.
type MissingKeyError struct {
	Table string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("node table %q: no primary key constraint found", e.Table)
}

// AmbiguousKeyError is returned when a node table's primary-key constraints
// name more than one distinct column.
type AmbiguousKeyError struct {
	Table   string
	Columns []string
}

func (e *AmbiguousKeyError) Error() string {
	return fmt.Sprintf("node table %q: expected a single primary key column, found %s",
		e.Table, strings.Join(e.Columns, ", "))
}

// MalformedRelationshipError is returned when a join table does not resolve
// into exactly one source and one target foreign key, or when its name does
// not carry a relationship type.
type MalformedRelationshipError struct {
	Table  string
	Reason string
}

func (e *MalformedRelationshipError) Error() string {
	return fmt.Sprintf("relationship table %q: %s", e.Table, e.Reason)
}

// ConstraintSyntaxError reports a constraint definition the parser could not read.
type ConstraintSyntaxError struct {
	Table      string
	Constraint string
	Definition string
	Offset     int
	Msg        string
}

func (e *ConstraintSyntaxError) Error() string {
	where := e.Constraint
	if e.Table != "" {
		where = e.Table + "." + e.Constraint
	}
	return fmt.Sprintf("constraint %s: %s at offset %d in %q", where, e.Msg, e.Offset, e.Definition)
}
