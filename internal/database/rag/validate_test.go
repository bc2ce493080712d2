package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"graphbridge/internal/database/graph"
)

func TestQueryCorrector_Correct(t *testing.T) {
	c := NewQueryCorrector(graph.GraphSchema{Relationships: []graph.Pattern{
		{Start: "artist", Type: "PERFORMS", End: "song"},
		{Start: "song", Type: "PART_OF", End: "album"},
	}})

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "correct direction",
			query: "MATCH (a:artist)-[:PERFORMS]->(s:song) RETURN s.title",
			want:  "MATCH (a:artist)-[:PERFORMS]->(s:song) RETURN s.title",
		},
		{
			name:  "reversed outgoing",
			query: "MATCH (s:song)-[:PERFORMS]->(a:artist) RETURN a",
			want:  "MATCH (s:song)<-[:PERFORMS]-(a:artist) RETURN a",
		},
		{
			name:  "reversed incoming",
			query: "MATCH (a:artist)<-[r:PERFORMS]-(s:song) RETURN r",
			want:  "MATCH (a:artist)-[r:PERFORMS]->(s:song) RETURN r",
		},
		{
			name:  "undirected",
			query: "MATCH (s:song)-[:PERFORMS]-(a:artist) RETURN a",
			want:  "MATCH (s:song)-[:PERFORMS]-(a:artist) RETURN a",
		},
		{
			name:  "unknown type",
			query: "MATCH (a:artist)-[:WROTE]->(s:song) RETURN s",
			want:  "",
		},
		{
			name:  "wrong labels in both directions",
			query: "MATCH (a:artist)-[:PART_OF]->(b:album) RETURN b",
			want:  "",
		},
		{
			name:  "variables resolved from earlier declaration",
			query: "MATCH (a:artist), (s:song) MATCH (s)-[:PERFORMS]->(a) RETURN a",
			want:  "MATCH (a:artist), (s:song) MATCH (s)<-[:PERFORMS]-(a) RETURN a",
		},
		{
			name:  "chained path with one reversed hop",
			query: "MATCH (a:artist)-[:PERFORMS]->(s:song)<-[:PART_OF]-(b:album) RETURN b",
			want:  "MATCH (a:artist)-[:PERFORMS]->(s:song)-[:PART_OF]->(b:album) RETURN b",
		},
		{
			name:  "unlabelled endpoints match any label",
			query: "MATCH (x)-[:PERFORMS]->(y) RETURN y",
			want:  "MATCH (x)-[:PERFORMS]->(y) RETURN y",
		},
		{
			name:  "alternative types and properties",
			query: "MATCH (a:artist {name: 'Nina'})-[r:WROTE|PERFORMS {year: 1965}]->(s:song) RETURN s",
			want:  "MATCH (a:artist {name: 'Nina'})-[r:WROTE|PERFORMS {year: 1965}]->(s:song) RETURN s",
		},
		{
			name:  "function call inside a property map",
			query: "MATCH (s:song {title: toLower('x')})-[:PERFORMS]->(a:artist) RETURN a",
			want:  "MATCH (s:song {title: toLower('x')})<-[:PERFORMS]-(a:artist) RETURN a",
		},
		{
			name:  "parenthesis inside a quoted value",
			query: "MATCH (a:artist)-[:PERFORMS]->(s:song {title: 'So What (live'}) RETURN s",
			want:  "MATCH (a:artist)-[:PERFORMS]->(s:song {title: 'So What (live'}) RETURN s",
		},
		{
			name:  "backticked names",
			query: "MATCH (s:`song`)-[:`PERFORMS`]->(a:`artist`) RETURN a",
			want:  "MATCH (s:`song`)<-[:`PERFORMS`]-(a:`artist`) RETURN a",
		},
		{
			name:  "untyped relationship is not checked",
			query: "MATCH (s:song)-[r]->(a:artist) RETURN r",
			want:  "MATCH (s:song)-[r]->(a:artist) RETURN r",
		},
		{
			name:  "no pattern",
			query: "MATCH (n:artist) RETURN count(n)",
			want:  "MATCH (n:artist) RETURN count(n)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Correct(tt.query))
		})
	}
}

func TestQueryCorrector_EmptySchema(t *testing.T) {
	q := "MATCH (a:artist)-[:ANYTHING]->(b) RETURN b"
	assert.Equal(t, q, NewQueryCorrector(graph.GraphSchema{}).Correct(q))
}

func TestBalancedParens(t *testing.T) {
	q := "(s:song {t: f(g('(')), n: 1})-"
	assert.Equal(t, 0, openingParen(q, strings.LastIndexByte(q, ')')))
	assert.Equal(t, strings.LastIndexByte(q, ')'), closingParen(q, 0))
	assert.Equal(t, -1, closingParen("(a:artist", 0))
	assert.Equal(t, -1, openingParen("a)", 1))
}

func TestRelTypes(t *testing.T) {
	assert.Equal(t, []string{"PERFORMS", "WROTE"}, relTypes("r:PERFORMS|:WROTE*1..3"))
	assert.Nil(t, relTypes("r"))
	assert.Nil(t, relTypes(""))
}

func TestNodeLabel(t *testing.T) {
	vars := map[string]string{"a": "artist"}
	assert.Equal(t, "artist", nodeLabel("a", vars))
	assert.Equal(t, "song", nodeLabel("s:song:Track {title: 'x'}", vars))
	assert.Equal(t, "my label", nodeLabel("n:`my label`", vars))
	assert.Equal(t, "", nodeLabel("", vars))
}
