//go:build integration
// +build integration

package graph

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupNeo4j starts a Neo4j container and returns a connected client.
func setupNeo4j(t *testing.T, ctx context.Context) *Neo4jClient {
	t.Helper()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration test")
	}
	if err := provider.Health(ctx); err != nil {
		t.Skip("Docker not running, skipping integration test")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "neo4j:5",
			ExposedPorts: []string{"7687/tcp"},
			Env:          map[string]string{"NEO4J_AUTH": "none"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("7687/tcp"),
				wait.ForLog("Started."),
			).WithDeadline(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	client, err := NewNeo4jClient(fmt.Sprintf("bolt://%s:%s", host, port.Port()), "neo4j", "ignored", "", WithBatchSize(1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func TestIntegration_Neo4jLoadAndIntrospect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()
	client := setupNeo4j(t, ctx)
	require.NoError(t, client.Reset(ctx))

	stats, err := client.WriteNodes(ctx, artistPlan, rows(
		map[string]any{"artist_id": int64(1), "name": "Nina"},
		map[string]any{"artist_id": int64(2), "name": "Miles"},
		map[string]any{"artist_id": nil, "name": "nobody"},
	))
	require.NoError(t, err)
	assert.Equal(t, WriteStats{RowsRead: 3, Written: 2, Skipped: 1}, stats)

	_, err = client.WriteNodes(ctx, songPlan, rows(
		map[string]any{"song_id": int64(10), "title": "Sinnerman"},
	))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		stats, err = client.WriteRelationships(ctx, performs, rows(
			map[string]any{"source_artist_id": int64(1), "target_song_id": int64(10), "year": int64(1965)},
			map[string]any{"source_artist_id": int64(2), "target_song_id": int64(99)},
		))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Written)
		assert.Equal(t, 1, stats.Skipped)
	}

	gstats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gstats.Nodes["artist"])
	assert.Equal(t, int64(1), gstats.Nodes["song"])
	assert.Equal(t, int64(1), gstats.Relationships["PERFORMS"])

	gs, err := client.Schema(ctx)
	require.NoError(t, err)
	assert.True(t, gs.HasPattern("artist", "PERFORMS", "song"))
	assert.Contains(t, gs.String(), "(:artist)-[:PERFORMS]->(:song)")

	res, err := client.ExecuteCypher(ctx, "MATCH (a:artist)-[:PERFORMS]->(s:song) RETURN a.name AS artist, s.title AS song")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"artist": "Nina", "song": "Sinnerman"}}, res)

	_, err = client.ExecuteCypher(ctx, "CREATE (n:intruder) RETURN n")
	assert.Error(t, err, "read transactions reject writes")
}
