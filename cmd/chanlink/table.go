package main

import (
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/chanlink/chanlink/internal/pruner"
)

// renderMethodSummary prints a per-strategy verdict table after a match
// run.
func renderMethodSummary(w io.Writer, rep *pruner.Report) {
	type row struct {
		method   string
		count    int
		accepted int
	}
	byMethod := map[string]*row{}
	for _, o := range rep.Outcomes {
		m := string(o.Verdict.Method)
		r, ok := byMethod[m]
		if !ok {
			r = &row{method: m}
			byMethod[m] = r
		}
		r.count++
		if o.Accepted {
			r.accepted++
		}
	}
	rows := make([]*row, 0, len(byMethod))
	for _, r := range byMethod {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].method < rows[j].method
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"method", "channels", "accepted"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.method, r.count, r.accepted})
	}
	t.AppendFooter(table.Row{"total", len(rep.Outcomes), ""})
	t.SetStyle(table.StyleLight)
	t.Render()
}
