package output

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphbridge/internal/database"
	"graphbridge/internal/database/graph"
	"graphbridge/internal/schema"
)

func ref(name string) schema.TableRef {
	return schema.TableRef{Catalog: "main", Schema: "default", Name: name}
}

func TestBuildReportView(t *testing.T) {
	report := database.Report{
		RunID:    "run-1",
		Duration: 1500 * time.Millisecond,
		Tables: []database.TableOutcome{
			{Table: ref("artist"), Kind: database.KindNode, Status: database.StatusLoaded, Stats: graph.WriteStats{RowsRead: 2, Written: 2}},
			{Table: ref("song"), Kind: database.KindNode, Status: database.StatusFailed, Err: errors.New("no primary key")},
			{Table: ref("artist-performs-song"), Kind: database.KindRelationship, Status: database.StatusSkipped},
		},
		Warnings: []string{`node table "album" not found`},
	}

	view := BuildReportView(report)
	assert.Equal(t, "LOAD REPORT run-1", view.Title)
	assert.True(t, view.Failed)
	require.Len(t, view.Sections, 3)

	nodes := view.SectionByID(SectionNodes)
	require.NotNil(t, nodes)
	artist := nodes.ItemByKey("artist")
	require.NotNil(t, artist)
	assert.Equal(t, StatusOK, artist.Status)
	assert.Equal(t, int64(2), artist.Value)
	assert.Equal(t, StatusCrit, nodes.ItemByKey("song").Status)
	assert.Equal(t, "no primary key", nodes.ItemByKey("song").Note)

	rels := view.SectionByID(SectionRelationships)
	require.NotNil(t, rels)
	assert.Equal(t, StatusWarn, rels.Items[0].Status)

	assert.Contains(t, view.Summary, "Nodes: 2")
	assert.Contains(t, view.Summary, "Failed: 1")
	assert.Nil(t, nodes.ItemByKey("missing"))
}

func TestBuildReportView_SkippedRowsWarn(t *testing.T) {
	view := BuildReportView(database.Report{Tables: []database.TableOutcome{
		{Table: ref("artist-performs-song"), Kind: database.KindRelationship, Status: database.StatusLoaded,
			Stats: graph.WriteStats{RowsRead: 3, Written: 2, Skipped: 1}},
	}})
	require.Len(t, view.Sections, 1)
	assert.Equal(t, StatusWarn, view.Sections[0].Items[0].Status)
	assert.False(t, view.Failed)
	assert.Nil(t, view.SectionByID(SectionNodes))
}

func TestBuildPlanView(t *testing.T) {
	set := database.PlanSet{
		Nodes: []schema.NodeLoadPlan{{Table: ref("artist"), Label: "artist", UniqueKey: "artist_id"}},
		Relationships: []schema.RelationshipLoadPlan{{
			Table:       ref("artist-performs-song"),
			Type:        "PERFORMS",
			SourceLabel: "artist",
			Source:      schema.KeyMapping{Local: "source_artist_id", Referenced: "artist_id"},
			TargetLabel: "song",
			Target:      schema.KeyMapping{Local: "target_song_id", Referenced: "song_id"},
		}},
		Failures: []database.TableOutcome{{Table: ref("broken"), Kind: database.KindNode, Err: errors.New("ambiguous")}},
	}

	view := BuildPlanView(set)
	assert.True(t, view.Failed)
	nodes := view.SectionByID(SectionNodes)
	require.NotNil(t, nodes)
	assert.Equal(t, "(:artist {artist_id})", nodes.ItemByKey("artist").Note)
	assert.Equal(t, StatusCrit, nodes.ItemByKey("broken").Status)
	assert.Equal(t, "(:artist {artist_id})-[:PERFORMS]->(:song {song_id})",
		view.SectionByID(SectionRelationships).Items[0].Note)
}

func TestBuildStatsView(t *testing.T) {
	view := BuildStatsView(graph.GraphStats{
		Nodes:         map[string]int64{"song": 3, "artist": 2},
		Relationships: map[string]int64{},
	})
	require.Len(t, view.Sections, 1)
	assert.Equal(t, "artist", view.Sections[0].Items[0].Label)
	assert.Equal(t, "Nodes: 5 | Relationships: 0", view.Summary)
}
