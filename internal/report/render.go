package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	vberrors "github.com/viewbench/viewbench/internal/errors"
)

// Render dispatches to the named format.
func Render(r *Report, format string) ([]byte, error) {
	switch format {
	case "markdown":
		return []byte(RenderMarkdown(r)), nil
	case "table":
		return []byte(RenderTable(r)), nil
	case "json":
		return RenderJSON(r)
	default:
		return nil, vberrors.NewValidationError(vberrors.CodeInvalidConfig,
			fmt.Sprintf("unknown report format: %s", format))
	}
}

// RenderJSON renders the report as indented JSON.
func RenderJSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, vberrors.NewInternalError("failed to marshal report", err)
	}
	return data, nil
}

// RenderMarkdown renders the report as a markdown document with one table
// for latency and one for on-disk size.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# viewbench run %s\n\n", r.RunID)
	fmt.Fprintf(&b, "Started %s, finished %s.\n\n",
		r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Scale: %d students, %d courses, %d classes, %d enrollments. %d warmup + %d measured executions per variant.\n\n",
		r.Counts.Students, r.Counts.Courses, r.Counts.Classes, r.Counts.Enrollments,
		r.Warmup, r.Iterations)

	b.WriteString("## Latency\n\n")
	b.WriteString("| Variant | Rows | Min | Median | Mean | P95 | Max | StdDev |\n")
	b.WriteString("|---------|------|-----|--------|------|-----|-----|--------|\n")
	for _, res := range r.Results {
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s | %s | %s |\n",
			res.Variant, res.Rows,
			fmtDuration(res.Stats.Min), fmtDuration(res.Stats.Median),
			fmtDuration(res.Stats.Mean), fmtDuration(res.Stats.P95),
			fmtDuration(res.Stats.Max), fmtDuration(res.Stats.StdDev))
	}

	b.WriteString("\n## On-disk size\n\n")
	b.WriteString("| Object | Kind | Size |\n")
	b.WriteString("|--------|------|------|\n")
	for _, s := range r.Sizes {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", s.Name, s.Kind, fmtBytes(s.Bytes))
	}

	b.WriteString("\n")
	if fastest := r.Fastest(); fastest != "" {
		fmt.Fprintf(&b, "Fastest variant by median latency: %s (%s).\n",
			fastest, strings.Join(r.Ordering(), " < "))
	}
	b.WriteString(equivalenceLine(r) + "\n")

	return b.String()
}

// RenderTable renders the report as aligned plain-text tables.
func RenderTable(r *Report) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "viewbench run %s\n", r.RunID)
	fmt.Fprintf(&buf, "scale: students=%d courses=%d classes=%d enrollments=%d\n",
		r.Counts.Students, r.Counts.Courses, r.Counts.Classes, r.Counts.Enrollments)
	fmt.Fprintf(&buf, "executions: %d warmup + %d measured per variant\n\n", r.Warmup, r.Iterations)

	latency := tablewriter.NewWriter(&buf)
	latency.SetHeader([]string{"Variant", "Rows", "Min", "Median", "Mean", "P95", "Max", "StdDev"})
	for _, res := range r.Results {
		latency.Append([]string{
			res.Variant, fmt.Sprintf("%d", res.Rows),
			fmtDuration(res.Stats.Min), fmtDuration(res.Stats.Median),
			fmtDuration(res.Stats.Mean), fmtDuration(res.Stats.P95),
			fmtDuration(res.Stats.Max), fmtDuration(res.Stats.StdDev),
		})
	}
	latency.Render()

	buf.WriteString("\n")

	sizes := tablewriter.NewWriter(&buf)
	sizes.SetHeader([]string{"Object", "Kind", "Size"})
	for _, s := range r.Sizes {
		sizes.Append([]string{s.Name, string(s.Kind), fmtBytes(s.Bytes)})
	}
	sizes.Render()

	buf.WriteString("\n")
	if fastest := r.Fastest(); fastest != "" {
		fmt.Fprintf(&buf, "fastest by median: %s (%s)\n",
			fastest, strings.Join(r.Ordering(), " < "))
	}
	buf.WriteString(equivalenceLine(r) + "\n")

	return buf.String()
}

func equivalenceLine(r *Report) string {
	if !r.Verified {
		return "Result-set equivalence: not checked."
	}
	if r.Equivalent {
		return "Result-set equivalence: all variants returned identical rows."
	}
	return "Result-set equivalence: FAILED, variants diverged."
}

// fmtDuration trims sub-microsecond noise from latency figures.
func fmtDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}

func fmtBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
