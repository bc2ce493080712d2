// Package output turns load reports, plans and graph counts into view models
// shared by the console printer and the terminal UI.
package output

import (
	"fmt"
	"sort"
	"time"

	"graphbridge/internal/database"
	"graphbridge/internal/database/graph"
)

// Section constants to avoid hardcoded strings
const (
	SectionNodes         = "nodes"
	SectionRelationships = "relationships"
	SectionWarnings      = "warnings"
)

// Item statuses.
const (
	StatusOK   = "OK"
	StatusWarn = "WARN"
	StatusCrit = "CRIT"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  int64
	Status string
	Note   string
}

type Section struct {
	ID    string
	Title string
	Items []Item
}

type View struct {
	Title    string
	Sections []Section
	Summary  string
	Failed   bool
}

// BuildReportView converts a load report into UI-ready sections.
func BuildReportView(r database.Report) View {
	sec := map[string]*Section{
		SectionNodes:         {ID: SectionNodes, Title: "Node tables"},
		SectionRelationships: {ID: SectionRelationships, Title: "Relationship tables"},
		SectionWarnings:      {ID: SectionWarnings, Title: "Warnings"},
	}

	for _, t := range r.Tables {
		it := Item{
			Key:   t.Table.Name,
			Label: t.Table.Name,
			Value: int64(t.Stats.Written),
		}
		switch t.Status {
		case database.StatusLoaded:
			it.Status = StatusOK
			it.Note = fmt.Sprintf("%d read, %d skipped, %s", t.Stats.RowsRead, t.Stats.Skipped, t.Duration.Round(time.Millisecond))
			if t.Stats.Skipped > 0 {
				it.Status = StatusWarn
			}
		case database.StatusSkipped:
			it.Status = StatusWarn
			it.Note = "skipped"
		default:
			it.Status = StatusCrit
			if t.Err != nil {
				it.Note = t.Err.Error()
			}
		}
		if t.Kind == database.KindNode {
			sec[SectionNodes].Items = append(sec[SectionNodes].Items, it)
		} else {
			sec[SectionRelationships].Items = append(sec[SectionRelationships].Items, it)
		}
	}
	for i, w := range r.Warnings {
		sec[SectionWarnings].Items = append(sec[SectionWarnings].Items, Item{
			Key:    fmt.Sprintf("warning_%d", i),
			Status: StatusWarn,
			Note:   w,
		})
	}

	nodes := r.Totals(database.KindNode)
	rels := r.Totals(database.KindRelationship)
	return View{
		Title:    "LOAD REPORT " + r.RunID,
		Sections: nonEmpty(sec[SectionNodes], sec[SectionRelationships], sec[SectionWarnings]),
		Summary: fmt.Sprintf("Nodes: %d | Relationships: %d | Failed: %d | %s",
			nodes.Written, rels.Written, len(r.Failed()), r.Duration.Round(time.Millisecond)),
		Failed: len(r.Failed()) > 0,
	}
}

// BuildPlanView converts resolved plans into UI-ready sections.
func BuildPlanView(set database.PlanSet) View {
	sec := map[string]*Section{
		SectionNodes:         {ID: SectionNodes, Title: "Node plans"},
		SectionRelationships: {ID: SectionRelationships, Title: "Relationship plans"},
		SectionWarnings:      {ID: SectionWarnings, Title: "Warnings"},
	}
	for _, p := range set.Nodes {
		sec[SectionNodes].Items = append(sec[SectionNodes].Items, Item{
			Key:    p.Table.Name,
			Label:  p.Table.Name,
			Status: StatusOK,
			Note:   fmt.Sprintf("(:%s {%s})", p.Label, p.UniqueKey),
		})
	}
	for _, p := range set.Relationships {
		sec[SectionRelationships].Items = append(sec[SectionRelationships].Items, Item{
			Key:    p.Table.Name,
			Label:  p.Table.Name,
			Status: StatusOK,
			Note: fmt.Sprintf("(:%s {%s})-[:%s]->(:%s {%s})",
				p.SourceLabel, p.Source.Referenced, p.Type, p.TargetLabel, p.Target.Referenced),
		})
	}
	for _, f := range set.Failures {
		id := SectionNodes
		if f.Kind == database.KindRelationship {
			id = SectionRelationships
		}
		sec[id].Items = append(sec[id].Items, Item{
			Key:    f.Table.Name,
			Label:  f.Table.Name,
			Status: StatusCrit,
			Note:   f.Err.Error(),
		})
	}
	for i, w := range set.Warnings {
		sec[SectionWarnings].Items = append(sec[SectionWarnings].Items, Item{
			Key:    fmt.Sprintf("warning_%d", i),
			Status: StatusWarn,
			Note:   w,
		})
	}
	return View{
		Title:    "LOAD PLAN",
		Sections: nonEmpty(sec[SectionNodes], sec[SectionRelationships], sec[SectionWarnings]),
		Summary: fmt.Sprintf("Node plans: %d | Relationship plans: %d | Failed: %d",
			len(set.Nodes), len(set.Relationships), len(set.Failures)),
		Failed: len(set.Failures) > 0,
	}
}

// BuildStatsView lists element counts per label and relationship type.
func BuildStatsView(st graph.GraphStats) View {
	return View{
		Title: "GRAPH",
		Sections: nonEmpty(
			&Section{ID: SectionNodes, Title: "Labels", Items: countItems(st.Nodes)},
			&Section{ID: SectionRelationships, Title: "Relationship types", Items: countItems(st.Relationships)},
		),
		Summary: fmt.Sprintf("Nodes: %d | Relationships: %d", st.TotalNodes(), st.TotalRelationships()),
	}
}

func countItems(counts map[string]int64) []Item {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, Item{Key: k, Label: k, Value: counts[k]})
	}
	return items
}

func nonEmpty(secs ...*Section) []Section {
	out := make([]Section, 0, len(secs))
	for _, s := range secs {
		if len(s.Items) > 0 {
			out = append(out, *s)
		}
	}
	return out
}

func (v View) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
