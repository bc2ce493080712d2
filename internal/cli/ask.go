package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"graphbridge/internal/config"
	"graphbridge/internal/database/graph"
	"graphbridge/internal/database/rag"
	"graphbridge/internal/logging"
	"graphbridge/internal/mcpserver"
	"graphbridge/ui/tui"
)

// AskFlags holds the ask command flags.
type AskFlags struct {
	ShowQuery bool
}

var askFlags = &AskFlags{}

var newGenerator = rag.NewGenerator

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question over the graph",
	Long: `Ask generates a Cypher query for the question from the graph schema,
corrects relationship directions against the schema, runs the query and
phrases an answer from the returned rows.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions in an interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question answering chain as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	askCmd.Flags().BoolVar(&askFlags.ShowQuery, "show-query", false, "Print the executed Cypher query before the answer")
}

// session is a connected graph plus the chain built on it.
type session struct {
	graph graph.GraphClient
	chain *rag.Chain
	log   *logging.Logger
}

func (s *session) Close(ctx context.Context) {
	if err := s.chain.Close(); err != nil {
		s.log.Warn("close generator", "error", err)
	}
	if err := s.graph.Close(ctx); err != nil {
		s.log.Warn("close graph", "error", err)
	}
	s.log.Sync()
}

func openSession(ctx context.Context) (*session, error) {
	cfg, log, err := setup()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateChain(); err != nil {
		return nil, err
	}
	return connect(ctx, cfg, log)
}

func connect(ctx context.Context, cfg config.Config, log *logging.Logger) (*session, error) {
	prompt, err := rag.NewCypherPrompt(cfg.LLM.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("SYSTEM_PROMPT: %w", err)
	}
	opts := []rag.ChainOption{
		rag.WithTopK(cfg.LLM.TopK),
		rag.WithChainLogger(log.With("component", "chain")),
	}
	if cfg.LLM.QAPrompt != "" {
		qa, err := rag.NewQAPrompt(cfg.LLM.QAPrompt)
		if err != nil {
			return nil, fmt.Errorf("QA_PROMPT: %w", err)
		}
		opts = append(opts, rag.WithQAPrompt(qa))
	}

	gen, err := newGenerator(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	g, err := openGraph(ctx, cfg, log)
	if err != nil {
		closeGenerator(gen)
		return nil, fmt.Errorf("connect to graph: %w", err)
	}
	chain, err := rag.NewChain(g, gen, prompt, opts...)
	if err != nil {
		closeGenerator(gen)
		_ = g.Close(ctx)
		return nil, err
	}
	return &session{graph: g, chain: chain, log: log}, nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	res, err := s.chain.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if askFlags.ShowQuery {
		query := res.Query
		if query == "" {
			query = "(no query matched the graph schema)"
		}
		fmt.Fprintf(out, "Cypher: %s\n\n", query)
	}
	fmt.Fprintln(out, res.Answer)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	return tui.Start(ctx, s.chain, s.graph)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	srv, err := mcpserver.NewServer(mcpserver.Config{ServerVersion: Version}, s.chain, s.graph, s.log.With("component", "mcp"))
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

// closeGenerator releases a generator that holds a client connection.
func closeGenerator(gen rag.Generator) {
	if c, ok := gen.(io.Closer); ok {
		_ = c.Close()
	}
}
