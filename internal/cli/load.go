package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"graphbridge/internal/config"
	"graphbridge/internal/database"
	"graphbridge/internal/database/graph"
	"graphbridge/internal/database/relational"
	"graphbridge/internal/logging"
	"graphbridge/internal/output"
	"graphbridge/internal/schema"
	"graphbridge/ui/console"
)

// LoadFlags holds the load command flags.
type LoadFlags struct {
	DryRun          bool
	ContinueOnError bool
	Reset           bool
}

var loadFlags = &LoadFlags{}

// TableFlags override the table selection of load and plan.
type TableFlags struct {
	Nodes   []string
	Rels    []string
	Catalog string
	Schema  string
}

var tableFlags = &TableFlags{}

// apply returns cfg with the flag overrides applied. An unset flag keeps the
// configured value.
func (f *TableFlags) apply(cfg config.Config) config.Config {
	if len(f.Nodes) > 0 || len(f.Rels) > 0 {
		nodes, rels := cfg.Tables.Nodes, cfg.Tables.Relationships
		if len(f.Nodes) > 0 {
			nodes = f.Nodes
		}
		if len(f.Rels) > 0 {
			rels = f.Rels
		}
		cfg = cfg.WithTables(nodes, rels)
	}
	if f.Catalog != "" || f.Schema != "" {
		name, schemaName := cfg.Catalog.Name, cfg.Catalog.Schema
		if f.Catalog != "" {
			name = f.Catalog
		}
		if f.Schema != "" {
			schemaName = f.Schema
		}
		cfg = cfg.WithCatalog(name, schemaName)
	}
	return cfg
}

var (
	openCatalog = func(ctx context.Context, cfg config.Config) (relational.Catalog, error) {
		return relational.Open(ctx, cfg.Catalog, cfg.Conventions)
	}
	openGraph = func(_ context.Context, cfg config.Config, log *logging.Logger) (graph.GraphClient, error) {
		return graph.NewNeo4jClient(cfg.Graph.URL, cfg.Graph.User, cfg.Graph.Password, cfg.Graph.Database,
			graph.WithBatchSize(cfg.Graph.BatchSize),
			graph.WithLogger(log),
		)
	}
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the configured node and relationship tables into the graph",
	Long: `Load runs the node phase (one node per row of every node table) and
then the relationship phase (one relationship per row of every relationship
table). The run stops at the first failed table unless --continue-on-error is
set; the relationship phase never starts after a node table failed.

With --dry-run rows are written into an in-memory graph and the graph store
credentials are not required.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve and print every load plan without reading rows",
	Args:  cobra.NoArgs,
	RunE:  runPlan,
}

func init() {
	loadCmd.Flags().BoolVar(&loadFlags.DryRun, "dry-run", false, "Write into an in-memory graph instead of Neo4j")
	loadCmd.Flags().BoolVar(&loadFlags.ContinueOnError, "continue-on-error", false, "Record failed tables and keep going")
	loadCmd.Flags().BoolVar(&loadFlags.Reset, "reset", false, "Delete all graph data before loading")

	for _, cmd := range []*cobra.Command{loadCmd, planCmd} {
		cmd.Flags().StringSliceVar(&tableFlags.Nodes, "nodes", nil, "Node tables (overrides NODE_TABLES)")
		cmd.Flags().StringSliceVar(&tableFlags.Rels, "rels", nil, "Relationship tables (overrides REL_TABLES)")
		cmd.Flags().StringVar(&tableFlags.Catalog, "catalog", "", "Catalog name (overrides CATALOG_NAME)")
		cmd.Flags().StringVar(&tableFlags.Schema, "schema", "", "Schema name (overrides CATALOG_SCHEMA)")
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg = tableFlags.apply(cfg)

	if err := cfg.ValidateLoader(loadFlags.DryRun); err != nil {
		return err
	}

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	var g graph.GraphClient
	if loadFlags.DryRun {
		g = graph.NewMemoryGraph()
	} else {
		g, err = openGraph(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("connect to graph: %w", err)
		}
	}
	defer g.Close(context.WithoutCancel(ctx))

	loader, err := newLoader(cfg, cat, g, log)
	if err != nil {
		return err
	}

	report, runErr := loader.Run(ctx)
	out := cmd.OutOrStdout()
	console.Print(out, output.BuildReportView(report))

	if loadFlags.DryRun && runErr == nil {
		st, err := g.Stats(ctx)
		if err != nil {
			return err
		}
		console.Print(out, output.BuildStatsView(st))
	}
	return runErr
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	cfg = tableFlags.apply(cfg)

	if err := cfg.ValidateLoader(true); err != nil {
		return err
	}

	cat, err := openCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	loader, err := newLoader(cfg, cat, graph.NewMemoryGraph(), log)
	if err != nil {
		return err
	}
	set, err := loader.Plan(ctx)
	if err != nil {
		return err
	}
	console.Print(cmd.OutOrStdout(), output.BuildPlanView(set))
	if len(set.Failures) > 0 {
		return fmt.Errorf("%d tables have no valid load plan", len(set.Failures))
	}
	return nil
}

func newLoader(cfg config.Config, cat relational.Catalog, w graph.Writer, log *logging.Logger) (*database.Loader, error) {
	return database.NewLoader(cat, w, schema.NewPlanBuilder(cfg.Conventions), database.LoaderOptions{
		Catalog:            cfg.Catalog.Name,
		Schema:             cfg.Catalog.Schema,
		NodeTables:         cfg.Tables.Nodes,
		RelationshipTables: cfg.Tables.Relationships,
		ContinueOnError:    loadFlags.ContinueOnError,
		Reset:              loadFlags.Reset,
	}, log)
}
