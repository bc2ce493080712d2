// Package rag answers natural-language questions over the loaded graph: an
// LLM writes a Cypher query from the graph schema, the query runs read-only,
// and the LLM turns the rows into an answer.
package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"graphbridge/internal/database/graph"
	"graphbridge/internal/logging"
)

// DefaultTopK limits how many result rows reach the answer prompt.
const DefaultTopK = 10

// GraphReader is the part of a graph client the chain needs.
type GraphReader interface {
	Schema(ctx context.Context) (graph.GraphSchema, error)
	ExecuteCypher(ctx context.Context, query string) ([]map[string]any, error)
}

// Result is the full trace of one question.
type Result struct {
	Question string
	// Generated is the query as extracted from model output.
	Generated string
	// Query is the query that was executed; empty when the generated query
	// did not fit the graph schema.
	Query   string
	Context []map[string]any
	Answer  string
}

// Chain is the GraphRAG question answering chain.
type Chain struct {
	graph        GraphReader
	generator    Generator
	cypherPrompt *PromptTemplate
	qaPrompt     *PromptTemplate
	topK         int
	validate     bool
	log          *logging.Logger

	mu     sync.Mutex
	schema *graph.GraphSchema
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithQAPrompt replaces the answer synthesis prompt. It must declare
// {context} and {question}.
func WithQAPrompt(p *PromptTemplate) ChainOption {
	return func(c *Chain) { c.qaPrompt = p }
}

// WithTopK sets how many result rows are passed to the answer prompt.
func WithTopK(k int) ChainOption {
	return func(c *Chain) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithoutValidation executes generated queries without checking relationship
// directions.
func WithoutValidation() ChainOption {
	return func(c *Chain) { c.validate = false }
}

// WithChainLogger sets the logger.
func WithChainLogger(l *logging.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.log = l
		}
	}
}

// NewChain assembles a chain. cypherPrompt must declare {schema} and
// {question}.
func NewChain(g GraphReader, gen Generator, cypherPrompt *PromptTemplate, opts ...ChainOption) (*Chain, error) {
	if g == nil || gen == nil || cypherPrompt == nil {
		return nil, errors.New("graph, generator and cypher prompt are required")
	}
	c := &Chain{
		graph:        g,
		generator:    gen,
		cypherPrompt: cypherPrompt,
		qaPrompt:     DefaultQAPrompt(),
		topK:         DefaultTopK,
		validate:     true,
		log:          logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Schema returns the cached graph schema, loading it on first use.
func (c *Chain) Schema(ctx context.Context) (graph.GraphSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schema != nil {
		return *c.schema, nil
	}
	gs, err := c.graph.Schema(ctx)
	if err != nil {
		return graph.GraphSchema{}, fmt.Errorf("load graph schema: %w", err)
	}
	c.schema = &gs
	return gs, nil
}

// RefreshSchema reloads the graph schema, e.g. after a load.
func (c *Chain) RefreshSchema(ctx context.Context) error {
	c.mu.Lock()
	c.schema = nil
	c.mu.Unlock()
	_, err := c.Schema(ctx)
	return err
}

// Invoke answers question and returns only the answer.
func (c *Chain) Invoke(ctx context.Context, question string) (string, error) {
	res, err := c.Run(ctx, question)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Run answers question and returns every intermediate step.
func (c *Chain) Run(ctx context.Context, question string) (Result, error) {
	res := Result{Question: strings.TrimSpace(question)}
	if res.Question == "" {
		return res, errors.New("question is empty")
	}

	gs, err := c.Schema(ctx)
	if err != nil {
		return res, err
	}

	prompt, err := c.cypherPrompt.Format(map[string]any{"schema": gs.String(), "question": res.Question})
	if err != nil {
		return res, err
	}
	out, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return res, fmt.Errorf("failed to generate cypher: %w", err)
	}
	res.Generated = cleanCypherQuery(out)
	res.Query = res.Generated
	if c.validate {
		res.Query = NewQueryCorrector(gs).Correct(res.Generated)
	}
	c.log.Debug("generated cypher", "query", res.Generated, "validated", res.Query)

	if res.Query != "" {
		rows, err := c.graph.ExecuteCypher(ctx, res.Query)
		if err != nil {
			return res, fmt.Errorf("failed to execute graph query: %w", err)
		}
		if len(rows) > c.topK {
			rows = rows[:c.topK]
		}
		res.Context = rows
	} else {
		c.log.Warn("generated query does not match the graph schema", "query", res.Generated)
	}

	res.Answer, err = c.synthesizeAnswer(ctx, res.Question, res.Context)
	if err != nil {
		return res, fmt.Errorf("failed to synthesize answer: %w", err)
	}
	return res, nil
}

func (c *Chain) synthesizeAnswer(ctx context.Context, question string, rows []map[string]any) (string, error) {
	if rows == nil {
		rows = []map[string]any{}
	}
	graphJSON, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", err
	}
	prompt, err := c.qaPrompt.Format(map[string]any{"context": string(graphJSON), "question": question})
	if err != nil {
		return "", err
	}
	answer, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Close closes the generator when it holds a connection.
func (c *Chain) Close() error {
	if closer, ok := c.generator.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
