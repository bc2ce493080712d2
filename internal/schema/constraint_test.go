package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConstraint_PrimaryKey(t *testing.T) {
	tests := []struct {
		name string
		def  string
		want []string
	}{
		{"databricks", "PRIMARY KEY (`artist_id`)", []string{"artist_id"}},
		{"duckdb no space", "PRIMARY KEY(artist_id)", []string{"artist_id"}},
		{"lower case", "primary key (id)", []string{"id"}},
		{"double quoted", `PRIMARY KEY ("Artist Id")`, []string{"Artist Id"}},
		{"composite", "PRIMARY KEY (`a`, `b`)", []string{"a", "b"}},
		{"escaped backtick", "PRIMARY KEY (`we``ird`)", []string{"we`ird"}},
		{"trailing options", "PRIMARY KEY (`id`) RELY", []string{"id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kc, err := ParseConstraint(tt.def)
			require.NoError(t, err)
			pk, ok := kc.(PrimaryKey)
			require.True(t, ok, "expected PrimaryKey, got %T", kc)
			assert.Equal(t, tt.want, pk.Columns)
		})
	}
}

func TestParseConstraint_ForeignKey(t *testing.T) {
	tests := []struct {
		name string
		def  string
		want ForeignKey
	}{
		{
			name: "databricks three part",
			def:  "FOREIGN KEY (`source_artist_id`) REFERENCES `main`.`default`.`artist` (`artist_id`)",
			want: ForeignKey{
				LocalColumn:      "source_artist_id",
				ReferencedTable:  TableRef{Catalog: "main", Schema: "default", Name: "artist"},
				ReferencedColumn: "artist_id",
			},
		},
		{
			name: "duckdb bare",
			def:  "FOREIGN KEY (target_song_id) REFERENCES song(song_id)",
			want: ForeignKey{
				LocalColumn:      "target_song_id",
				ReferencedTable:  TableRef{Name: "song"},
				ReferencedColumn: "song_id",
			},
		},
		{
			name: "postgres schema qualified",
			def:  `FOREIGN KEY (source_user) REFERENCES public."User"(id) ON DELETE CASCADE`,
			want: ForeignKey{
				LocalColumn:      "source_user",
				ReferencedTable:  TableRef{Schema: "public", Name: "User"},
				ReferencedColumn: "id",
			},
		},
		{
			name: "not enforced",
			def:  "FOREIGN KEY (`x`) REFERENCES `c`.`s`.`t` (`y`) NOT ENFORCED",
			want: ForeignKey{
				LocalColumn:      "x",
				ReferencedTable:  TableRef{Catalog: "c", Schema: "s", Name: "t"},
				ReferencedColumn: "y",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kc, err := ParseConstraint(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kc)
		})
	}
}

func TestParseConstraint_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  string
	}{
		{"empty", ""},
		{"unique", "UNIQUE (`id`)"},
		{"missing key keyword", "PRIMARY (`id`)"},
		{"unterminated quote", "PRIMARY KEY (`id)"},
		{"missing paren", "PRIMARY KEY `id`"},
		{"missing references", "FOREIGN KEY (`a`) `t` (`b`)"},
		{"composite foreign key", "FOREIGN KEY (`a`, `b`) REFERENCES `t` (`x`, `y`)"},
		{"four part name", "FOREIGN KEY (`a`) REFERENCES `w`.`x`.`y`.`z` (`b`)"},
		{"empty identifier", "PRIMARY KEY (``)"},
		{"keyword prefix only", "PRIMARYKEY (`id`)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConstraint(tt.def)
			require.Error(t, err)
			var se *ConstraintSyntaxError
			assert.True(t, errors.As(err, &se), "expected ConstraintSyntaxError, got %T", err)
		})
	}
}
