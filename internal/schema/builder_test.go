package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ref(name string) TableRef {
	return TableRef{Catalog: "main", Schema: "default", Name: name}
}

func pkRow(table, col string) ConstraintDescriptor {
	return ConstraintDescriptor{Name: table + "_pk", Definition: "PRIMARY KEY (`" + col + "`)"}
}

func fkRow(name, local, refTable, refCol string) ConstraintDescriptor {
	return ConstraintDescriptor{
		Name:       name,
		Definition: "FOREIGN KEY (`" + local + "`) REFERENCES `main`.`default`.`" + refTable + "` (`" + refCol + "`)",
	}
}

func TestNodePlan(t *testing.T) {
	b := NewPlanBuilder(Conventions{})

	plan, err := b.NodePlan(TableDescriptor{
		Ref: ref("artist"),
		Constraints: []ConstraintDescriptor{
			{Name: "# Constraints", Definition: ""},
			pkRow("artist", "artist_id"),
			fkRow("artist_label_fk", "label_id", "label", "label_id"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "artist", plan.Label)
	assert.Equal(t, "artist_id", plan.UniqueKey)
	assert.Equal(t, ref("artist"), plan.Table)
}

func TestNodePlan_SuffixIsCaseInsensitive(t *testing.T) {
	b := NewPlanBuilder(Conventions{})
	plan, err := b.NodePlan(TableDescriptor{
		Ref:         ref("song"),
		Constraints: []ConstraintDescriptor{{Name: "SONG_PK", Definition: "PRIMARY KEY (song_id)"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "song_id", plan.UniqueKey)
}

func TestNodePlan_MissingKey(t *testing.T) {
	b := NewPlanBuilder(Conventions{})
	_, err := b.NodePlan(TableDescriptor{
		Ref:         ref("artist"),
		Constraints: []ConstraintDescriptor{fkRow("artist_label_fk", "label_id", "label", "label_id")},
	})

	var mk *MissingKeyError
	require.True(t, errors.As(err, &mk), "expected MissingKeyError, got %v", err)
	assert.Equal(t, "artist", mk.Table)
	assert.Contains(t, err.Error(), "artist")
}

func TestNodePlan_AmbiguousKey(t *testing.T) {
	b := NewPlanBuilder(Conventions{})

	tests := []struct {
		name        string
		constraints []ConstraintDescriptor
		want        []string
	}{
		{
			name:        "composite key",
			constraints: []ConstraintDescriptor{{Name: "t_pk", Definition: "PRIMARY KEY (`a`, `b`)"}},
			want:        []string{"a", "b"},
		},
		{
			name:        "two conflicting constraints",
			constraints: []ConstraintDescriptor{pkRow("t", "a"), {Name: "other_pk", Definition: "PRIMARY KEY (`c`)"}},
			want:        []string{"a", "c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.NodePlan(TableDescriptor{Ref: ref("t"), Constraints: tt.constraints})
			var ak *AmbiguousKeyError
			require.True(t, errors.As(err, &ak), "expected AmbiguousKeyError, got %v", err)
			assert.Equal(t, tt.want, ak.Columns)
		})
	}
}

func TestNodePlan_DuplicateConstraintSameColumn(t *testing.T) {
	b := NewPlanBuilder(Conventions{})
	plan, err := b.NodePlan(TableDescriptor{
		Ref:         ref("t"),
		Constraints: []ConstraintDescriptor{pkRow("t", "id"), {Name: "t2_pk", Definition: "PRIMARY KEY (id)"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "id", plan.UniqueKey)
}

func TestNodePlan_UnparseablePrimaryKey(t *testing.T) {
	b := NewPlanBuilder(Conventions{})
	_, err := b.NodePlan(TableDescriptor{
		Ref:         ref("t"),
		Constraints: []ConstraintDescriptor{{Name: "t_pk", Definition: "PRIMARY KEY"}},
	})
	var se *ConstraintSyntaxError
	require.True(t, errors.As(err, &se), "expected ConstraintSyntaxError, got %v", err)
	assert.Equal(t, "t", se.Table)
	assert.Equal(t, "t_pk", se.Constraint)
}

func TestRelationshipType(t *testing.T) {
	b := NewPlanBuilder(Conventions{})

	typ, err := b.RelationshipType("artist-performs-song")
	require.NoError(t, err)
	assert.Equal(t, "PERFORMS", typ)

	typ, err = b.RelationshipType("user-member_of")
	require.NoError(t, err)
	assert.Equal(t, "MEMBER_OF", typ)

	_, err = b.RelationshipType("performs")
	var mr *MalformedRelationshipError
	assert.True(t, errors.As(err, &mr))

	_, err = b.RelationshipType("artist--song")
	assert.True(t, errors.As(err, &mr))
}

func TestRelationshipPlan(t *testing.T) {
	b := NewPlanBuilder(Conventions{})

	plan, err := b.RelationshipPlan(TableDescriptor{
		Ref: ref("artist-performs-song"),
		Constraints: []ConstraintDescriptor{
			fkRow("performs_target_fk", "target_song_id", "song", "song_id"),
			fkRow("performs_source_fk", "source_artist_id", "artist", "artist_id"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "PERFORMS", plan.Type)
	assert.Equal(t, "artist", plan.SourceLabel)
	assert.Equal(t, KeyMapping{Local: "source_artist_id", Referenced: "artist_id"}, plan.Source)
	assert.Equal(t, "song", plan.TargetLabel)
	assert.Equal(t, KeyMapping{Local: "target_song_id", Referenced: "song_id"}, plan.Target)
	assert.Equal(t, "source_artist_id:artist_id", plan.Source.String())
	assert.Contains(t, plan.Describe(), "relationship name: PERFORMS")
}

func TestRelationshipPlan_Malformed(t *testing.T) {
	b := NewPlanBuilder(Conventions{})

	src := fkRow("a_fk", "source_artist_id", "artist", "artist_id")
	tgt := fkRow("b_fk", "target_song_id", "song", "song_id")
	src2 := fkRow("c_fk", "source_label_id", "label", "label_id")
	tgt2 := fkRow("d_fk", "album_id", "album", "album_id")

	tests := []struct {
		name        string
		table       string
		constraints []ConstraintDescriptor
		reason      string
	}{
		{"no separator", "performs", []ConstraintDescriptor{src, tgt}, "separator"},
		{"no foreign keys", "artist-performs-song", nil, "found 0"},
		{"one foreign key", "artist-performs-song", []ConstraintDescriptor{src}, "found 1"},
		{"no source", "artist-performs-song", []ConstraintDescriptor{tgt, tgt2}, "no foreign key column"},
		{"two sources", "artist-performs-song", []ConstraintDescriptor{src, src2}, "both foreign key"},
		{"three foreign keys", "artist-performs-song", []ConstraintDescriptor{src, tgt, tgt2}, "found 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.RelationshipPlan(TableDescriptor{Ref: ref(tt.table), Constraints: tt.constraints})
			var mr *MalformedRelationshipError
			require.True(t, errors.As(err, &mr), "expected MalformedRelationshipError, got %v", err)
			assert.Equal(t, tt.table, mr.Table)
			assert.Contains(t, mr.Reason, tt.reason)
		})
	}
}

func TestRelationshipPlan_CustomConventions(t *testing.T) {
	b := NewPlanBuilder(Conventions{SourcePrefix: "from_", Separator: "__", ForeignKeySuffix: "_ref"})

	plan, err := b.RelationshipPlan(TableDescriptor{
		Ref: ref("user__follows__user"),
		Constraints: []ConstraintDescriptor{
			{Name: "f1_ref", Definition: "FOREIGN KEY (from_user) REFERENCES users(id)"},
			{Name: "f2_ref", Definition: "FOREIGN KEY (to_user) REFERENCES users(id)"},
			{Name: "ignored_fk", Definition: "not a constraint"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "FOLLOWS", plan.Type)
	assert.Equal(t, "users", plan.SourceLabel)
	assert.Equal(t, "users", plan.TargetLabel)
	assert.Equal(t, []string{"from_user", "to_user"}, plan.KeyColumns())
}

// Round trip over the artist/song example: one plan per node table and one
// PERFORMS relationship plan.
func TestPlans_ArtistSongRoundTrip(t *testing.T) {
	b := NewPlanBuilder(DefaultConventions())

	artist, err := b.NodePlan(TableDescriptor{Ref: ref("artist"), Constraints: []ConstraintDescriptor{pkRow("artist", "artist_id")}})
	require.NoError(t, err)
	song, err := b.NodePlan(TableDescriptor{Ref: ref("song"), Constraints: []ConstraintDescriptor{pkRow("song", "song_id")}})
	require.NoError(t, err)
	rel, err := b.RelationshipPlan(TableDescriptor{
		Ref: ref("artist-performs-song"),
		Constraints: []ConstraintDescriptor{
			fkRow("performs_source_fk", "source_artist_id", "artist", "artist_id"),
			fkRow("performs_target_fk", "target_song_id", "song", "song_id"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, NodeLoadPlan{Table: ref("artist"), Label: "artist", UniqueKey: "artist_id"}, artist)
	assert.Equal(t, NodeLoadPlan{Table: ref("song"), Label: "song", UniqueKey: "song_id"}, song)
	assert.Equal(t, "artist", rel.SourceLabel)
	assert.Equal(t, "song", rel.TargetLabel)
	assert.Equal(t, "PERFORMS", rel.Type)
}
