package rag

import (
	"regexp"
	"sort"
	"strings"

	"graphbridge/internal/database/graph"
)

var (
	// )<-[rel]-( , )-[rel]->( or )-[rel]-( between two node patterns
	hopPattern = regexp.MustCompile(`\)\s*(<?-)\s*\[([^\[\]]*)\]\s*(->?)\s*\(`)
	// variable:Label declarations anywhere in the query
	labeledNode = regexp.MustCompile(`\(\s*(\w+)\s*:\s*` + "(`[^`]+`|\\w+)")
)

// QueryCorrector checks relationship directions in generated Cypher against
// the graph schema.
type QueryCorrector struct {
	patterns []graph.Pattern
}

// NewQueryCorrector creates a corrector for the given schema.
func NewQueryCorrector(gs graph.GraphSchema) *QueryCorrector {
	return &QueryCorrector{patterns: gs.Relationships}
}

type edit struct {
	start, end int
	text       string
}

// Correct returns query with reversed relationship patterns flipped. It
// returns "" when a pattern matches the schema in neither direction. Queries
// are returned unchanged when the schema has no relationship patterns.
func (c *QueryCorrector) Correct(query string) string {
	if len(c.patterns) == 0 {
		return query
	}
	vars := variableLabels(query)

	var edits []edit
	for pos := 0; pos < len(query); {
		m := hopPattern.FindStringSubmatchIndex(query[pos:])
		if m == nil {
			break
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += pos
			}
		}
		leftClose, rightOpen := m[0], m[1]-1
		leftOpen := openingParen(query, leftClose)
		rightClose := closingParen(query, rightOpen)
		if leftOpen < 0 || rightClose < 0 {
			pos = m[1]
			continue
		}
		left := nodeLabel(query[leftOpen+1:leftClose], vars)
		arrowIn := query[m[2]:m[3]]
		types := relTypes(query[m[4]:m[5]])
		arrowOut := query[m[6]:m[7]]
		right := nodeLabel(query[rightOpen+1:rightClose], vars)
		// The right node may start the next hop.
		pos = rightClose

		if len(types) == 0 {
			continue
		}
		switch {
		case arrowIn == "<-" && arrowOut == "->":
			// Bidirectional arrows are not valid Cypher; leave them to the server.
		case arrowIn == "-" && arrowOut == "->":
			if c.allowed(left, types, right) {
				continue
			}
			if !c.allowed(right, types, left) {
				return ""
			}
			edits = append(edits, edit{m[2], m[3], "<-"}, edit{m[6], m[7], "-"})
		case arrowIn == "<-" && arrowOut == "-":
			if c.allowed(right, types, left) {
				continue
			}
			if !c.allowed(left, types, right) {
				return ""
			}
			edits = append(edits, edit{m[2], m[3], "-"}, edit{m[6], m[7], "->"})
		default:
			if !c.allowed(left, types, right) && !c.allowed(right, types, left) {
				return ""
			}
		}
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	for _, e := range edits {
		query = query[:e.start] + e.text + query[e.end:]
	}
	return query
}

// allowed reports whether (start)-[:t]->(end) exists for any t in types. An
// empty label matches any label.
func (c *QueryCorrector) allowed(start string, types []string, end string) bool {
	for _, p := range c.patterns {
		if start != "" && p.Start != start {
			continue
		}
		if end != "" && p.End != end {
			continue
		}
		for _, t := range types {
			if p.Type == t {
				return true
			}
		}
	}
	return false
}

// openingParen returns the index of the '(' balancing the ')' at end, or -1.
// Parentheses inside quotes are ignored.
func openingParen(s string, end int) int {
	depth := 0
	var quote byte
	for i := end; i >= 0; i-- {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ')':
			depth++
		case c == '(':
			if depth--; depth == 0 {
				return i
			}
		}
	}
	return -1
}

// closingParen returns the index of the ')' balancing the '(' at start, or -1.
func closingParen(s string, start int) int {
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth--; depth == 0 {
				return i
			}
		}
	}
	return -1
}

func variableLabels(query string) map[string]string {
	vars := map[string]string{}
	for _, m := range labeledNode.FindAllStringSubmatch(query, -1) {
		if _, ok := vars[m[1]]; !ok {
			vars[m[1]] = strings.Trim(m[2], "`")
		}
	}
	return vars
}

// nodeLabel returns the first label of a node pattern body such as
// "a:artist {name: 'x'}", resolving bare variables through vars.
func nodeLabel(body string, vars map[string]string) string {
	if i := strings.IndexByte(body, '{'); i >= 0 {
		body = body[:i]
	}
	body = strings.TrimSpace(body)
	variable, rest, found := strings.Cut(body, ":")
	if !found {
		return vars[strings.TrimSpace(variable)]
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "`") {
		if end := strings.IndexByte(rest[1:], '`'); end >= 0 {
			return rest[1 : end+1]
		}
	}
	if i := strings.IndexAny(rest, ":&| "); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// relTypes returns the types of a relationship pattern body such as
// "r:PERFORMS|WROTE*1..2 {year: 1965}".
func relTypes(body string) []string {
	if i := strings.IndexByte(body, '{'); i >= 0 {
		body = body[:i]
	}
	_, rest, found := strings.Cut(body, ":")
	if !found {
		return nil
	}
	if i := strings.IndexByte(rest, '*'); i >= 0 {
		rest = rest[:i]
	}
	var types []string
	for _, t := range strings.Split(rest, "|") {
		t = strings.Trim(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), ":")), "`")
		if t != "" {
			types = append(types, t)
		}
	}
	return types
}
