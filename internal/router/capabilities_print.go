package router

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// plainTableWriter renders a kubectl-style table: no box-drawing, columns
// padded to their widest cell, suitable for piping through grep/awk. Adapted
// from the teacher's PlainTableWriter, trimmed to the one capability-summary
// shape this package needs.
type plainTableWriter struct {
	headers      []string
	rows         [][]string
	columnWidths []int
}

func newPlainTableWriter(headers []string) *plainTableWriter {
	w := &plainTableWriter{columnWidths: make([]int, len(headers))}
	w.headers = make([]string, len(headers))
	for i, h := range headers {
		upper := strings.ToUpper(h)
		w.headers[i] = upper
		w.columnWidths[i] = len(upper)
	}
	return w
}

func (w *plainTableWriter) appendRow(row []string) {
	normalized := make([]string, len(w.headers))
	for i := range w.headers {
		if i < len(row) {
			normalized[i] = row[i]
			if len(row[i]) > w.columnWidths[i] {
				w.columnWidths[i] = len(row[i])
			}
		}
	}
	w.rows = append(w.rows, normalized)
}

func (w *plainTableWriter) render(out io.Writer) {
	if len(w.headers) == 0 {
		return
	}
	w.printRow(out, w.headers)
	for _, row := range w.rows {
		w.printRow(out, row)
	}
}

func (w *plainTableWriter) printRow(out io.Writer, row []string) {
	const minPadding = 3
	var sb strings.Builder
	for i, cell := range row {
		if i == len(row)-1 {
			sb.WriteString(cell)
			continue
		}
		format := fmt.Sprintf("%%-%ds", w.columnWidths[i]+minPadding)
		sb.WriteString(fmt.Sprintf(format, cell))
	}
	fmt.Fprintln(out, strings.TrimRight(sb.String(), " "))
}

// PrintCapabilities writes a kubectl-style summary of every configured
// upstream — connection status and how many tools/resources/prompts it
// contributed to the Capability Index — to out. Intended for an optional
// `serve --print-capabilities` startup diagnostic (spec's supplemented
// table-formatted capability printer, grounded on the teacher's CLI table
// package).
func (r *Router) PrintCapabilities(out io.Writer) {
	snapshot := r.Manager.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	toolCounts := countByUpstream(r.Index.Tools(), func(t IndexedTool) string { return t.Upstream })
	resourceCounts := countByUpstream(r.Index.Resources(), func(res IndexedResource) string { return res.Upstream })
	promptCounts := countByUpstream(r.Index.Prompts(), func(p IndexedPrompt) string { return p.Upstream })

	w := newPlainTableWriter([]string{"name", "status", "tools", "resources", "prompts"})
	for _, name := range names {
		c, err := r.Manager.Get(name)
		if err != nil {
			continue
		}
		w.appendRow([]string{
			name,
			c.Status().String(),
			fmt.Sprintf("%d", toolCounts[name]),
			fmt.Sprintf("%d", resourceCounts[name]),
			fmt.Sprintf("%d", promptCounts[name]),
		})
	}
	w.render(out)
}

func countByUpstream[T any](items []T, upstreamOf func(T) string) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[upstreamOf(item)]++
	}
	return counts
}
