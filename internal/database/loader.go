// Package database runs the Schema-to-Graph load: catalog metadata is turned
// into load plans and the catalog rows are written into the graph.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"graphbridge/internal/database/graph"
	"graphbridge/internal/database/relational"
	"graphbridge/internal/logging"
	"graphbridge/internal/schema"
)

// Table kinds.
const (
	KindNode         = "node"
	KindRelationship = "relationship"
)

// Status is the outcome of one table.
type Status string

const (
	StatusLoaded  Status = "loaded"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// LoaderOptions selects what a run loads.
type LoaderOptions struct {
	Catalog            string
	Schema             string
	NodeTables         []string
	RelationshipTables []string
	// ContinueOnError records a failed table and moves on instead of aborting
	// the run. The relationship phase still never starts after a node failure.
	ContinueOnError bool
	// Reset clears the graph before the node phase.
	Reset bool
}

// Loader runs the node phase then the relationship phase, one table at a time.
type Loader struct {
	catalog relational.Catalog
	writer  graph.Writer
	builder *schema.PlanBuilder
	opts    LoaderOptions
	log     *logging.Logger
}

// NewLoader creates a loader.
func NewLoader(cat relational.Catalog, w graph.Writer, b *schema.PlanBuilder, opts LoaderOptions, log *logging.Logger) (*Loader, error) {
	if cat == nil || w == nil || b == nil {
		return nil, errors.New("catalog, writer and plan builder are required")
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Loader{catalog: cat, writer: w, builder: b, opts: opts, log: log}, nil
}

// TableOutcome is the result of one table in a run.
type TableOutcome struct {
	Table    schema.TableRef
	Kind     string
	Status   Status
	Plan     string
	Stats    graph.WriteStats
	Duration time.Duration
	Err      error
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Tables   []TableOutcome
	Warnings []string
}

// Failed returns the failed tables.
func (r Report) Failed() []TableOutcome {
	var out []TableOutcome
	for _, t := range r.Tables {
		if t.Status == StatusFailed {
			out = append(out, t)
		}
	}
	return out
}

// Totals sums write stats over all tables of kind.
func (r Report) Totals(kind string) graph.WriteStats {
	var total graph.WriteStats
	for _, t := range r.Tables {
		if t.Kind == kind {
			total.Add(t.Stats)
		}
	}
	return total
}

// Err joins the errors of all failed tables.
func (r Report) Err() error {
	var errs []error
	for _, t := range r.Failed() {
		errs = append(errs, t.Err)
	}
	return errors.Join(errs...)
}

// PlanSet is the resolved plan of every selected table.
type PlanSet struct {
	Nodes         []schema.NodeLoadPlan
	Relationships []schema.RelationshipLoadPlan
	Failures      []TableOutcome
	Warnings      []string
}

// Plan resolves every plan without reading rows or writing. Plan errors are
// collected rather than returned.
func (l *Loader) Plan(ctx context.Context) (PlanSet, error) {
	var set PlanSet
	nodes, rels, warnings, err := l.selectTables(ctx)
	if err != nil {
		return set, err
	}
	set.Warnings = warnings

	for _, ref := range nodes {
		plan, err := l.nodePlan(ctx, ref)
		if err != nil {
			set.Failures = append(set.Failures, TableOutcome{Table: ref, Kind: KindNode, Status: StatusFailed, Err: err})
			continue
		}
		set.Nodes = append(set.Nodes, plan)
	}
	for _, ref := range rels {
		plan, err := l.relationshipPlan(ctx, ref)
		if err != nil {
			set.Failures = append(set.Failures, TableOutcome{Table: ref, Kind: KindRelationship, Status: StatusFailed, Err: err})
			continue
		}
		set.Relationships = append(set.Relationships, plan)
	}
	set.Warnings = append(set.Warnings, l.labelWarnings(set.Relationships)...)
	return set, nil
}

// Run performs a full load. The returned error is non-nil when the run was
// aborted or any table failed; the report is always populated.
func (l *Loader) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString(), Started: time.Now()}
	log := l.log.With("run_id", report.RunID)

	finish := func(err error) (Report, error) {
		report.Duration = time.Since(report.Started)
		if err == nil {
			err = report.Err()
		}
		if err != nil {
			log.Error("load finished with errors", "error", err, "failed_tables", len(report.Failed()))
		} else {
			log.Info("load finished", "tables", len(report.Tables), "duration", report.Duration)
		}
		return report, err
	}

	nodes, rels, warnings, err := l.selectTables(ctx)
	if err != nil {
		return finish(err)
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	report.Warnings = append(report.Warnings, warnings...)

	if l.opts.Reset {
		log.Info("resetting graph")
		if err := l.writer.Reset(ctx); err != nil {
			return finish(fmt.Errorf("reset graph: %w", err))
		}
	}

	log.Info("node phase", "tables", len(nodes))
	nodeLabels := make(map[string]bool, len(nodes))
	for _, ref := range nodes {
		nodeLabels[ref.Name] = true
		out := l.loadNodeTable(ctx, log, ref)
		report.Tables = append(report.Tables, out)
		if out.Status == StatusFailed && !l.opts.ContinueOnError {
			return finish(out.Err)
		}
	}

	if len(report.Failed()) > 0 {
		for _, ref := range rels {
			report.Tables = append(report.Tables, TableOutcome{
				Table:  ref,
				Kind:   KindRelationship,
				Status: StatusSkipped,
				Err:    errors.New("node phase failed"),
			})
		}
		return finish(nil)
	}

	log.Info("relationship phase", "tables", len(rels))
	for _, ref := range rels {
		out, plan := l.loadRelationshipTable(ctx, log, ref)
		if plan != nil {
			for _, label := range []string{plan.SourceLabel, plan.TargetLabel} {
				if !nodeLabels[label] {
					w := fmt.Sprintf("relationship table %s references %q, which is not a designated node table", ref, label)
					log.Warn(w)
					report.Warnings = append(report.Warnings, w)
				}
			}
		}
		report.Tables = append(report.Tables, out)
		if out.Status == StatusFailed && !l.opts.ContinueOnError {
			return finish(out.Err)
		}
	}
	return finish(nil)
}

func (l *Loader) loadNodeTable(ctx context.Context, log *logging.Logger, ref schema.TableRef) TableOutcome {
	start := time.Now()
	out := TableOutcome{Table: ref, Kind: KindNode}
	log = log.With("table", ref.String(), "kind", KindNode)

	plan, err := l.nodePlan(ctx, ref)
	if err != nil {
		return l.failed(log, out, start, err)
	}
	out.Plan = fmt.Sprintf("label: %s, key: %s", plan.Label, plan.UniqueKey)
	log.Info("node plan", "label", plan.Label, "key", plan.UniqueKey)

	rows, err := l.catalog.ReadRows(ctx, ref)
	if err != nil {
		return l.failed(log, out, start, err)
	}
	defer rows.Close()

	out.Stats, err = l.writer.WriteNodes(ctx, plan, rows)
	if err != nil {
		return l.failed(log, out, start, fmt.Errorf("write nodes for %s: %w", ref, err))
	}
	out.Status = StatusLoaded
	out.Duration = time.Since(start)
	log.Info("nodes written", "rows", out.Stats.RowsRead, "written", out.Stats.Written, "skipped", out.Stats.Skipped)
	return out
}

func (l *Loader) loadRelationshipTable(ctx context.Context, log *logging.Logger, ref schema.TableRef) (TableOutcome, *schema.RelationshipLoadPlan) {
	start := time.Now()
	out := TableOutcome{Table: ref, Kind: KindRelationship}
	log = log.With("table", ref.String(), "kind", KindRelationship)

	plan, err := l.relationshipPlan(ctx, ref)
	if err != nil {
		return l.failed(log, out, start, err), nil
	}
	out.Plan = plan.Describe()
	log.Info(plan.Describe())

	rows, err := l.catalog.ReadRows(ctx, ref)
	if err != nil {
		return l.failed(log, out, start, err), &plan
	}
	defer rows.Close()

	out.Stats, err = l.writer.WriteRelationships(ctx, plan, rows)
	if err != nil {
		return l.failed(log, out, start, fmt.Errorf("write relationships for %s: %w", ref, err)), &plan
	}
	out.Status = StatusLoaded
	out.Duration = time.Since(start)
	if out.Stats.Skipped > 0 {
		log.Warn("rows without matching endpoints were skipped", "skipped", out.Stats.Skipped)
	}
	log.Info("relationships written", "rows", out.Stats.RowsRead, "written", out.Stats.Written)
	return out, &plan
}

func (l *Loader) failed(log *logging.Logger, out TableOutcome, start time.Time, err error) TableOutcome {
	out.Status = StatusFailed
	out.Err = err
	out.Duration = time.Since(start)
	log.Error("table failed", "error", err)
	return out
}

func (l *Loader) nodePlan(ctx context.Context, ref schema.TableRef) (schema.NodeLoadPlan, error) {
	desc, err := l.catalog.DescribeTable(ctx, ref)
	if err != nil {
		return schema.NodeLoadPlan{}, err
	}
	return l.builder.NodePlan(desc)
}

func (l *Loader) relationshipPlan(ctx context.Context, ref schema.TableRef) (schema.RelationshipLoadPlan, error) {
	desc, err := l.catalog.DescribeTable(ctx, ref)
	if err != nil {
		return schema.RelationshipLoadPlan{}, err
	}
	return l.builder.RelationshipPlan(desc)
}

// selectTables lists the catalog once and keeps allow-listed tables in
// allow-list order. Allow-listed names missing from the catalog produce a
// warning.
func (l *Loader) selectTables(ctx context.Context) (nodes, rels []schema.TableRef, warnings []string, err error) {
	names, err := l.catalog.ListTables(ctx, l.opts.Catalog, l.opts.Schema)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list tables: %w", err)
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	pick := func(allow []string, kind string) []schema.TableRef {
		var refs []schema.TableRef
		seen := map[string]bool{}
		for _, name := range allow {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !present[name] {
				warnings = append(warnings, fmt.Sprintf("%s table %q not found in %s.%s", kind, name, l.opts.Catalog, l.opts.Schema))
				continue
			}
			refs = append(refs, schema.TableRef{Catalog: l.opts.Catalog, Schema: l.opts.Schema, Name: name})
		}
		return refs
	}
	return pick(l.opts.NodeTables, KindNode), pick(l.opts.RelationshipTables, KindRelationship), warnings, nil
}

func (l *Loader) labelWarnings(plans []schema.RelationshipLoadPlan) []string {
	nodes := make(map[string]bool, len(l.opts.NodeTables))
	for _, n := range l.opts.NodeTables {
		nodes[n] = true
	}
	var out []string
	for _, p := range plans {
		for _, label := range []string{p.SourceLabel, p.TargetLabel} {
			if !nodes[label] {
				out = append(out, fmt.Sprintf("relationship table %s references %q, which is not a designated node table", p.Table, label))
			}
		}
	}
	return out
}
