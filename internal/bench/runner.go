// Package bench executes query variants under controlled repetition and
// aggregates wall-clock latency.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/montanaflynn/stats"

	vberrors "github.com/viewbench/viewbench/internal/errors"
	"github.com/viewbench/viewbench/internal/variant"
)

// Executor runs a single query to completion and reports the row count.
type Executor interface {
	Execute(ctx context.Context, query string) (rows int64, err error)
}

// Options holds benchmark execution knobs.
type Options struct {
	// Warmup is the number of cache-warming executions discarded per variant.
	Warmup int

	// Iterations is the number of measured executions per variant.
	Iterations int

	// QueryTimeout bounds a single execution. Zero means no bound.
	QueryTimeout time.Duration
}

// LatencyStats summarizes the measured samples of one variant.
type LatencyStats struct {
	Min    time.Duration `json:"min"`
	Max    time.Duration `json:"max"`
	Mean   time.Duration `json:"mean"`
	Median time.Duration `json:"median"`
	P95    time.Duration `json:"p95"`
	StdDev time.Duration `json:"stddev"`
}

// VariantResult holds the measurements of one variant.
type VariantResult struct {
	Variant     string          `json:"variant"`
	Description string          `json:"description"`
	Rows        int64           `json:"rows"`
	Samples     []time.Duration `json:"samples"`
	Stats       LatencyStats    `json:"stats"`
}

// Runner executes variants sequentially on a single logical connection path,
// mirroring the single-operator measurement the comparison models.
type Runner struct {
	exec Executor
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(exec Executor, opts Options) *Runner {
	return &Runner{exec: exec, opts: opts}
}

// Run measures every variant in registry order. Warmup executions run first
// and never enter the aggregates.
func (r *Runner) Run(ctx context.Context, variants []variant.Variant) ([]VariantResult, error) {
	if r.opts.Iterations <= 0 {
		return nil, vberrors.NewValidationError(vberrors.CodeInvalidConfig,
			fmt.Sprintf("iterations must be positive, got %d", r.opts.Iterations))
	}

	results := make([]VariantResult, 0, len(variants))

	for _, v := range variants {
		log.Printf("bench: %s: %d warmup + %d measured executions", v.Name, r.opts.Warmup, r.opts.Iterations)

		for i := 0; i < r.opts.Warmup; i++ {
			if _, _, err := r.execute(ctx, v); err != nil {
				return nil, err
			}
		}

		result := VariantResult{
			Variant:     v.Name,
			Description: v.Description,
			Samples:     make([]time.Duration, 0, r.opts.Iterations),
		}

		for i := 0; i < r.opts.Iterations; i++ {
			rows, elapsed, err := r.execute(ctx, v)
			if err != nil {
				return nil, err
			}
			result.Rows = rows
			result.Samples = append(result.Samples, elapsed)
		}

		s, err := computeStats(result.Samples)
		if err != nil {
			return nil, vberrors.NewInternalError(
				fmt.Sprintf("failed to aggregate samples for %s", v.Name), err)
		}
		result.Stats = s

		log.Printf("bench: %s: median=%v mean=%v p95=%v rows=%d",
			v.Name, s.Median, s.Mean, s.P95, result.Rows)
		results = append(results, result)
	}

	return results, nil
}

// execute runs one variant once under the configured timeout.
func (r *Runner) execute(ctx context.Context, v variant.Variant) (int64, time.Duration, error) {
	qctx := ctx
	if r.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, r.opts.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := r.exec.Execute(qctx, v.Query)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, 0, vberrors.NewBenchError(vberrors.CodeExecutionTimeout,
				fmt.Sprintf("variant %s exceeded query timeout %v", v.Name, r.opts.QueryTimeout), err)
		}
		return 0, 0, vberrors.NewBenchError(vberrors.CodeQueryFailed,
			fmt.Sprintf("variant %s execution failed", v.Name), err)
	}

	return rows, elapsed, nil
}

// computeStats aggregates latency samples.
func computeStats(samples []time.Duration) (LatencyStats, error) {
	data := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		data[i] = float64(s)
	}

	min, err := data.Min()
	if err != nil {
		return LatencyStats{}, err
	}
	max, err := data.Max()
	if err != nil {
		return LatencyStats{}, err
	}
	mean, err := data.Mean()
	if err != nil {
		return LatencyStats{}, err
	}
	median, err := data.Median()
	if err != nil {
		return LatencyStats{}, err
	}
	p95, err := data.Percentile(95)
	if err != nil {
		// Percentile needs more than one sample; fall back to the max.
		p95 = max
	}
	stddev, err := data.StandardDeviation()
	if err != nil {
		return LatencyStats{}, err
	}

	return LatencyStats{
		Min:    time.Duration(min),
		Max:    time.Duration(max),
		Mean:   time.Duration(mean),
		Median: time.Duration(median),
		P95:    time.Duration(p95),
		StdDev: time.Duration(stddev),
	}, nil
}
