package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphbridge/internal/config"
	"graphbridge/internal/database/graph"
	"graphbridge/internal/database/rag"
	"graphbridge/internal/database/relational"
	"graphbridge/internal/logging"
)

var musicTables = []string{
	`CREATE TABLE artist (artist_id INTEGER PRIMARY KEY, name VARCHAR)`,
	`CREATE TABLE song (song_id INTEGER PRIMARY KEY, title VARCHAR)`,
	`CREATE TABLE genre (name VARCHAR)`,
	`CREATE TABLE "artist-performs-song" (
		source_artist_id INTEGER REFERENCES artist(artist_id),
		target_song_id INTEGER REFERENCES song(song_id),
		year INTEGER
	)`,
	`INSERT INTO artist VALUES (1, 'Nina'), (2, 'Miles')`,
	`INSERT INTO song VALUES (10, 'Sinnerman'), (20, 'So What')`,
	`INSERT INTO "artist-performs-song" VALUES (1, 10, 1965), (2, 20, 1959)`,
}

// isolate clears every setting the commands read and points them at a
// missing env file.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TABLES_FILE", "NEO4J_URL", "NEO4J_URI", "NEO4J_USER", "NEO4J_USERNAME", "NEO4J_PASSWORD",
		"NEO4J_DATABASE", "CATALOG_DRIVER", "CATALOG_NAME", "CATALOG_SCHEMA", "NODE_TABLES",
		"REL_TABLES", "LLM_PROVIDER", "OPEN_AI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"SYSTEM_PROMPT", "QA_PROMPT", "LOG_MODE", "LOAD_BATCH_SIZE", "QA_TOP_K",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("CATALOG_SCHEMA", "main")

	*globalFlags = GlobalFlags{}
	*loadFlags = LoadFlags{}
	*tableFlags = TableFlags{}
	*askFlags = AskFlags{}
}

// withSeededCatalog replaces the catalog with an in-process DuckDB holding
// the music tables.
func withSeededCatalog(t *testing.T) {
	t.Helper()
	prev := openCatalog
	t.Cleanup(func() { openCatalog = prev })

	openCatalog = func(ctx context.Context, _ config.Config) (relational.Catalog, error) {
		client, err := relational.NewDuckDBClient("", relational.WithThreads(1))
		if err != nil {
			return nil, err
		}
		for _, stmt := range musicTables {
			if _, err := client.Exec(ctx, stmt); err != nil {
				client.Close()
				return nil, err
			}
		}
		return client, nil
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "--log-mode", "prod"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoad_DryRun(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)
	t.Setenv("NODE_TABLES", "artist,song")
	t.Setenv("REL_TABLES", "artist-performs-song")

	out, err := run(t, "load", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "LOAD REPORT")
	assert.Contains(t, out, "Nodes: 4 | Relationships: 2 | Failed: 0")
	assert.Contains(t, out, "GRAPH")
	assert.Contains(t, out, "PERFORMS")
}

func TestLoad_RequiresGraphCredentials(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)
	t.Setenv("NODE_TABLES", "artist,song")

	_, err := run(t, "load")
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "NEO4J_URL", cfgErr.Field)
}

func TestLoad_RequiresTables(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)

	_, err := run(t, "load", "--dry-run")
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "NODE_TABLES", cfgErr.Field)
}

func TestLoad_ContinueOnErrorStillFails(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)
	t.Setenv("NODE_TABLES", "genre,artist,song")
	t.Setenv("REL_TABLES", "artist-performs-song")

	out, err := run(t, "load", "--dry-run", "--continue-on-error")
	require.Error(t, err)
	assert.Contains(t, out, "genre")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "skipped")
}

func TestPlan(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)
	t.Setenv("NODE_TABLES", "artist,song")
	t.Setenv("REL_TABLES", "artist-performs-song")

	out, err := run(t, "plan")
	require.NoError(t, err)
	assert.Contains(t, out, "(:artist {artist_id})-[:PERFORMS]->(:song {song_id})")
	assert.Contains(t, out, "Node plans: 2 | Relationship plans: 1 | Failed: 0")
}

func TestPlan_ReportsTablesWithoutKey(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)
	t.Setenv("NODE_TABLES", "artist,genre")

	out, err := run(t, "plan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 tables have no valid load plan")
	assert.Contains(t, out, "genre")
}

func TestPlan_FlagsOverrideTables(t *testing.T) {
	isolate(t)
	withSeededCatalog(t)
	t.Setenv("NODE_TABLES", "artist,genre")
	t.Setenv("CATALOG_SCHEMA", "staging")

	out, err := run(t, "plan", "--nodes", "artist,song", "--rels", "artist-performs-song", "--schema", "main")
	require.NoError(t, err)
	assert.Contains(t, out, "Node plans: 2 | Relationship plans: 1 | Failed: 0")
	assert.NotContains(t, out, "genre")
}

func TestTableFlags_Apply(t *testing.T) {
	cfg := config.Default()
	cfg.Tables = config.TablesConfig{Nodes: []string{"artist"}, Relationships: []string{"artist-performs-song"}}
	cfg.Catalog.Name, cfg.Catalog.Schema = "music", "main"

	got := (&TableFlags{Nodes: []string{"song"}, Schema: "staging"}).apply(cfg)
	assert.Equal(t, []string{"song"}, got.Tables.Nodes)
	assert.Equal(t, []string{"artist-performs-song"}, got.Tables.Relationships)
	assert.Equal(t, "music", got.Catalog.Name)
	assert.Equal(t, "staging", got.Catalog.Schema)

	assert.Equal(t, cfg, (&TableFlags{}).apply(cfg))
}

func TestAsk_RequiresAPIKey(t *testing.T) {
	isolate(t)
	t.Setenv("NEO4J_URL", "bolt://localhost:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")

	_, err := run(t, "ask", "how many artists?")
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "OPEN_AI_API_KEY", cfgErr.Field)
}

// scriptedGenerator replays fixed outputs and records the prompts it saw.
type scriptedGenerator struct {
	outputs []string
	prompts []string
	closed  bool
}

func (g *scriptedGenerator) Close() error {
	g.closed = true
	return nil
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if len(g.outputs) == 0 {
		return "", errors.New("no more outputs")
	}
	out := g.outputs[0]
	g.outputs = g.outputs[1:]
	return out, nil
}

// queryableGraph answers every query with the same rows.
type queryableGraph struct {
	*graph.MemoryGraph
	rows    []map[string]any
	queries []string
}

func (g *queryableGraph) ExecuteCypher(_ context.Context, q string) ([]map[string]any, error) {
	g.queries = append(g.queries, q)
	return g.rows, nil
}

func TestAsk_RunsChain(t *testing.T) {
	isolate(t)
	t.Setenv("NEO4J_URL", "bolt://localhost:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("OPEN_AI_API_KEY", "sk-test")
	t.Setenv("SYSTEM_PROMPT", "Schema:\n{schema}\nQuestion: {question}")

	g := &queryableGraph{MemoryGraph: graph.NewMemoryGraph(), rows: []map[string]any{{"artists": int64(2)}}}
	prevGraph, prevGen := openGraph, newGenerator
	t.Cleanup(func() { openGraph, newGenerator = prevGraph, prevGen })
	openGraph = func(context.Context, config.Config, *logging.Logger) (graph.GraphClient, error) {
		return g, nil
	}
	newGenerator = func(context.Context, config.LLMConfig) (rag.Generator, error) {
		return &scriptedGenerator{outputs: []string{
			"```cypher\nMATCH (a:artist) RETURN count(a) AS artists\n```",
			"There are two artists.",
		}}, nil
	}

	out, err := run(t, "ask", "--show-query", "how", "many", "artists?")
	require.NoError(t, err)
	assert.Contains(t, out, "Cypher: MATCH (a:artist) RETURN count(a) AS artists")
	assert.Contains(t, out, "There are two artists.")
	assert.Equal(t, []string{"MATCH (a:artist) RETURN count(a) AS artists"}, g.queries)
}

// askEnv sets the minimum settings the ask command needs.
func askEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NEO4J_URL", "bolt://localhost:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
	t.Setenv("OPEN_AI_API_KEY", "sk-test")
	t.Setenv("SYSTEM_PROMPT", "Schema:\n{schema}\nQuestion: {question}")
}

func TestAsk_UsesConfiguredQAPrompt(t *testing.T) {
	isolate(t)
	askEnv(t)
	t.Setenv("QA_PROMPT", "Rows: {context}\nAnswer briefly: {question}")

	g := &queryableGraph{MemoryGraph: graph.NewMemoryGraph(), rows: []map[string]any{{"artists": int64(2)}}}
	gen := &scriptedGenerator{outputs: []string{"MATCH (a:artist) RETURN count(a) AS artists", "Two."}}
	prevGraph, prevGen := openGraph, newGenerator
	t.Cleanup(func() { openGraph, newGenerator = prevGraph, prevGen })
	openGraph = func(context.Context, config.Config, *logging.Logger) (graph.GraphClient, error) {
		return g, nil
	}
	newGenerator = func(context.Context, config.LLMConfig) (rag.Generator, error) {
		return gen, nil
	}

	out, err := run(t, "ask", "how many artists?")
	require.NoError(t, err)
	assert.Contains(t, out, "Two.")
	require.Len(t, gen.prompts, 2)
	assert.True(t, strings.HasPrefix(gen.prompts[1], "Rows: "))
	assert.True(t, strings.HasSuffix(gen.prompts[1], "Answer briefly: how many artists?"))
	assert.True(t, gen.closed)
}

func TestAsk_InvalidQAPrompt(t *testing.T) {
	isolate(t)
	askEnv(t)
	t.Setenv("QA_PROMPT", "Answer: {question}")

	_, err := run(t, "ask", "how many artists?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QA_PROMPT")
	assert.Contains(t, err.Error(), "missing input variable {context}")
}

func TestAsk_ClosesGeneratorWhenGraphFails(t *testing.T) {
	isolate(t)
	askEnv(t)

	gen := &scriptedGenerator{}
	prevGraph, prevGen := openGraph, newGenerator
	t.Cleanup(func() { openGraph, newGenerator = prevGraph, prevGen })
	openGraph = func(context.Context, config.Config, *logging.Logger) (graph.GraphClient, error) {
		return nil, errors.New("connection refused")
	}
	newGenerator = func(context.Context, config.LLMConfig) (rag.Generator, error) {
		return gen, nil
	}

	_, err := run(t, "ask", "how many artists?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to graph: connection refused")
	assert.True(t, gen.closed)
}
