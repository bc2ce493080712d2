// Package mcpserver exposes the graph question answering chain as MCP tools.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"graphbridge/internal/database/graph"
	"graphbridge/internal/database/rag"
	"graphbridge/internal/logging"
)

// Asker answers questions over the graph.
type Asker interface {
	Run(ctx context.Context, question string) (rag.Result, error)
}

// GraphInspector is the read side of a graph client.
type GraphInspector interface {
	Schema(ctx context.Context) (graph.GraphSchema, error)
	Stats(ctx context.Context) (graph.GraphStats, error)
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// Server wraps the MCP server with graph question answering.
type Server struct {
	mcpServer *mcp.Server
	asker     Asker
	graph     GraphInspector
	log       *logging.Logger
}

// Config holds configuration for the MCP server.
type Config struct {
	ServerName    string
	ServerVersion string
}

// NewServer creates a server and registers its tools.
func NewServer(cfg Config, asker Asker, g GraphInspector, log *logging.Logger) (*Server, error) {
	if asker == nil || g == nil {
		return nil, errors.New("asker and graph are required")
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "graphbridge"
	}
	if log == nil {
		log = logging.Nop()
	}

	impl := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}
	s := &Server{
		mcpServer: mcp.NewServer(impl, nil),
		asker:     asker,
		graph:     g,
		log:       log,
	}
	s.registerTools()
	return s, nil
}

// AskGraphArgs defines the input for the ask_graph tool.
type AskGraphArgs struct {
	Question string `json:"question" jsonschema:"natural-language question about the data in the graph"`
}

// AskGraphResult defines the output for the ask_graph tool.
type AskGraphResult struct {
	Answer string `json:"answer" jsonschema:"generated answer"`
	Query  string `json:"query,omitempty" jsonschema:"Cypher query that produced the context"`
	Rows   int    `json:"rows" jsonschema:"number of result rows used as context"`
}

// QueryGraphArgs defines the input for the query_graph tool.
type QueryGraphArgs struct {
	Cypher string `json:"cypher" jsonschema:"read-only Cypher query to execute"`
}

// QueryGraphResult wraps graph query results.
type QueryGraphResult struct {
	Data []map[string]any `json:"data" jsonschema:"query results"`
}

// SchemaArgs is the empty input of the get_graph_schema tool.
type SchemaArgs struct{}

// SchemaResult describes the graph schema.
type SchemaResult struct {
	Text          string   `json:"text" jsonschema:"schema in the form used for query generation"`
	Labels        []string `json:"labels" jsonschema:"node labels"`
	Relationships []string `json:"relationships" jsonschema:"relationship patterns"`
}

// StatsResult holds element counts.
type StatsResult struct {
	Nodes              map[string]int64 `json:"nodes" jsonschema:"node count per label"`
	Relationships      map[string]int64 `json:"relationships" jsonschema:"relationship count per type"`
	TotalNodes         int64            `json:"total_nodes"`
	TotalRelationships int64            `json:"total_relationships"`
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "ask_graph",
		Description: "Ask a natural-language question about the data loaded into the graph. A Cypher query is generated from the graph schema, run read-only, and the rows are summarized into an answer.",
	}, s.handleAskGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query_graph",
		Description: "Execute a read-only Cypher query directly on the graph database. Use get_graph_schema first to see labels and relationship types.",
	}, s.handleQueryGraph)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_graph_schema",
		Description: "Get node labels, properties and relationship patterns of the graph.",
	}, s.handleGetSchema)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_graph_stats",
		Description: "Count nodes per label and relationships per type.",
	}, s.handleGetStats)
}

func (s *Server) handleAskGraph(ctx context.Context, _ *mcp.CallToolRequest, args AskGraphArgs) (*mcp.CallToolResult, AskGraphResult, error) {
	if strings.TrimSpace(args.Question) == "" {
		return nil, AskGraphResult{}, errors.New("question is required")
	}
	res, err := s.asker.Run(ctx, args.Question)
	if err != nil {
		s.log.Error("ask_graph failed", "error", err)
		return nil, AskGraphResult{}, fmt.Errorf("question answering failed: %w", err)
	}
	return nil, AskGraphResult{Answer: res.Answer, Query: res.Query, Rows: len(res.Context)}, nil
}

func (s *Server) handleQueryGraph(ctx context.Context, _ *mcp.CallToolRequest, args QueryGraphArgs) (*mcp.CallToolResult, QueryGraphResult, error) {
	if strings.TrimSpace(args.Cypher) == "" {
		return nil, QueryGraphResult{}, errors.New("cypher is required")
	}
	result, err := s.graph.ExecuteCypher(ctx, args.Cypher)
	if err != nil {
		return nil, QueryGraphResult{}, fmt.Errorf("cypher query failed: %w", err)
	}
	if result == nil {
		result = []map[string]any{}
	}
	return nil, QueryGraphResult{Data: result}, nil
}

func (s *Server) handleGetSchema(ctx context.Context, _ *mcp.CallToolRequest, _ SchemaArgs) (*mcp.CallToolResult, SchemaResult, error) {
	gs, err := s.graph.Schema(ctx)
	if err != nil {
		return nil, SchemaResult{}, fmt.Errorf("failed to read graph schema: %w", err)
	}
	out := SchemaResult{Text: gs.String(), Labels: gs.Labels(), Relationships: []string{}}
	for _, p := range gs.Relationships {
		out.Relationships = append(out.Relationships, p.String())
	}
	return nil, out, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *mcp.CallToolRequest, _ SchemaArgs) (*mcp.CallToolResult, StatsResult, error) {
	st, err := s.graph.Stats(ctx)
	if err != nil {
		return nil, StatsResult{}, fmt.Errorf("failed to count graph elements: %w", err)
	}
	return nil, StatsResult{
		Nodes:              st.Nodes,
		Relationships:      st.Relationships,
		TotalNodes:         st.TotalNodes(),
		TotalRelationships: st.TotalRelationships(),
	}, nil
}

// Connect serves one session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// Start runs the MCP server over stdio until the client disconnects or ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting MCP server on stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
