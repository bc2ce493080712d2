package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphbridge/internal/database/relational"
	"graphbridge/internal/schema"
)

var (
	artistPlan = schema.NodeLoadPlan{Table: schema.TableRef{Name: "artist"}, Label: "artist", UniqueKey: "artist_id"}
	songPlan   = schema.NodeLoadPlan{Table: schema.TableRef{Name: "song"}, Label: "song", UniqueKey: "song_id"}
	performs   = schema.RelationshipLoadPlan{
		Table:       schema.TableRef{Name: "artist-performs-song"},
		Type:        "PERFORMS",
		SourceLabel: "artist",
		Source:      schema.KeyMapping{Local: "source_artist_id", Referenced: "artist_id"},
		TargetLabel: "song",
		Target:      schema.KeyMapping{Local: "target_song_id", Referenced: "song_id"},
	}
)

func rows(r ...map[string]any) relational.RowIterator {
	return relational.NewSliceRows(r)
}

func seed(t *testing.T, g *MemoryGraph) {
	t.Helper()
	ctx := context.Background()
	_, err := g.WriteNodes(ctx, artistPlan, rows(
		map[string]any{"artist_id": int64(1), "name": "Nina"},
		map[string]any{"artist_id": int64(2), "name": "Miles"},
	))
	require.NoError(t, err)
	_, err = g.WriteNodes(ctx, songPlan, rows(
		map[string]any{"song_id": int64(10), "title": "Sinnerman"},
		map[string]any{"song_id": int64(20), "title": "So What"},
	))
	require.NoError(t, err)
}

func TestMemoryGraph_WriteNodesOverwritesByKey(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	seed(t, g)

	stats, err := g.WriteNodes(ctx, artistPlan, rows(
		map[string]any{"artist_id": int64(1), "name": "Nina Simone"},
		map[string]any{"artist_id": nil, "name": "nobody"},
	))
	require.NoError(t, err)
	assert.Equal(t, WriteStats{RowsRead: 2, Written: 1, Skipped: 1}, stats)

	props, ok := g.Node("artist", int64(1))
	require.True(t, ok)
	assert.Equal(t, "Nina Simone", props["name"])

	gs, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gs.Nodes["artist"])
}

func TestMemoryGraph_WriteRelationships(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	seed(t, g)

	stats, err := g.WriteRelationships(ctx, performs, rows(
		map[string]any{"source_artist_id": int64(1), "target_song_id": int64(10), "year": int64(1965)},
		map[string]any{"source_artist_id": int64(2), "target_song_id": int64(20), "year": int64(1959)},
		map[string]any{"source_artist_id": int64(3), "target_song_id": int64(20)},
		map[string]any{"source_artist_id": "1", "target_song_id": int64(10)},
	))
	require.NoError(t, err)
	assert.Equal(t, WriteStats{RowsRead: 4, Written: 2, Skipped: 2}, stats)

	rels := g.Relationships("PERFORMS")
	require.Len(t, rels, 2)
	assert.Equal(t, int64(1), rels[0].StartKey)
	assert.Equal(t, int64(10), rels[0].EndKey)
	assert.Equal(t, map[string]any{"year": int64(1965)}, rels[0].Properties)
}

func TestMemoryGraph_RelationshipsAreIdempotent(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	seed(t, g)

	for i := 0; i < 2; i++ {
		_, err := g.WriteRelationships(ctx, performs, rows(
			map[string]any{"source_artist_id": int64(1), "target_song_id": int64(10)},
		))
		require.NoError(t, err)
	}

	gs, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gs.Relationships["PERFORMS"])
}

func TestMemoryGraph_RelationshipsBeforeNodesMatchNothing(t *testing.T) {
	g := NewMemoryGraph()
	stats, err := g.WriteRelationships(context.Background(), performs, rows(
		map[string]any{"source_artist_id": int64(1), "target_song_id": int64(10)},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Written)
	assert.Equal(t, 1, stats.Skipped)
}

func TestMemoryGraph_MatchOnNonKeyProperty(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	seed(t, g)

	byTitle := performs
	byTitle.Target = schema.KeyMapping{Local: "song_title", Referenced: "title"}
	stats, err := g.WriteRelationships(ctx, byTitle, rows(
		map[string]any{"source_artist_id": int64(1), "song_title": "Sinnerman"},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
}

func TestMemoryGraph_SchemaAndReset(t *testing.T) {
	g := NewMemoryGraph()
	ctx := context.Background()
	seed(t, g)
	_, err := g.WriteRelationships(ctx, performs, rows(
		map[string]any{"source_artist_id": int64(1), "target_song_id": int64(10), "year": int64(1965)},
	))
	require.NoError(t, err)

	gs, err := g.Schema(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Property{{Name: "artist_id", Type: "INTEGER"}, {Name: "name", Type: "STRING"}}, gs.NodeProperties["artist"])
	assert.Equal(t, []Pattern{{Start: "artist", Type: "PERFORMS", End: "song"}}, gs.Relationships)
	assert.True(t, gs.HasPattern("artist", "PERFORMS", "song"))
	assert.False(t, gs.HasPattern("song", "PERFORMS", "artist"))

	require.NoError(t, g.Reset(ctx))
	st, err := g.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalNodes())
	assert.Zero(t, st.TotalRelationships())
}

func TestMemoryGraph_ExecuteCypherUnsupported(t *testing.T) {
	_, err := NewMemoryGraph().ExecuteCypher(context.Background(), "MATCH (n) RETURN n")
	assert.True(t, errors.Is(err, ErrCypherUnsupported))
}

func TestMemoryGraph_ReadErrorIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryGraph().WriteNodes(ctx, artistPlan, rows(map[string]any{"artist_id": int64(1)}))
	assert.ErrorIs(t, err, context.Canceled)
}
