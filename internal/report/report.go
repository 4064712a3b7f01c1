// Package report renders collected benchmark metrics into markdown, text,
// or JSON.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/viewbench/viewbench/internal/bench"
	"github.com/viewbench/viewbench/internal/datagen"
	"github.com/viewbench/viewbench/internal/inspect"
)

// Report is the complete outcome of one benchmark run.
type Report struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Counts     datagen.Counts       `json:"counts"`
	Warmup     int                  `json:"warmup"`
	Iterations int                  `json:"iterations"`
	Verified   bool                 `json:"verified"`
	Equivalent bool                 `json:"equivalent"`
	Results    []bench.VariantResult `json:"results"`
	Sizes      []inspect.ObjectSize  `json:"sizes"`
}

// Ordering returns variant names sorted by median latency, fastest first.
// Ties keep measurement order.
func (r *Report) Ordering() []string {
	idx := make([]int, len(r.Results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.Results[idx[a]].Stats.Median < r.Results[idx[b]].Stats.Median
	})

	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = r.Results[j].Variant
	}
	return out
}

// Fastest returns the variant with the lowest median latency, or empty if
// no results were collected.
func (r *Report) Fastest() string {
	ordering := r.Ordering()
	if len(ordering) == 0 {
		return ""
	}
	return ordering[0]
}

// Result returns the result for the named variant.
func (r *Report) Result(name string) (bench.VariantResult, bool) {
	for _, res := range r.Results {
		if res.Variant == name {
			return res, true
		}
	}
	return bench.VariantResult{}, false
}

// Filename returns the canonical artifact name for a rendered report.
func Filename(runID, format string) string {
	ext := map[string]string{
		"markdown": "md",
		"table":    "txt",
		"json":     "json",
	}[format]
	if ext == "" {
		ext = format
	}
	return fmt.Sprintf("run-%s.%s", runID, ext)
}
