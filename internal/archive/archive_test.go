package archive

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/viewbench/viewbench/internal/bench"
	"github.com/viewbench/viewbench/internal/datagen"
	vberrors "github.com/viewbench/viewbench/internal/errors"
	"github.com/viewbench/viewbench/internal/inspect"
	"github.com/viewbench/viewbench/internal/report"
	"github.com/viewbench/viewbench/internal/variant"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(runID string, started time.Time) *report.Report {
	return &report.Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Counts: datagen.Counts{
			Students:    100,
			Courses:     10,
			Classes:     20,
			Enrollments: 500,
		},
		Warmup:     2,
		Iterations: 5,
		Verified:   true,
		Equivalent: true,
		Results: []bench.VariantResult{
			{
				Variant:     variant.NameRawJoin,
				Description: "inline four-way join",
				Rows:        500,
				Samples: []time.Duration{
					12 * time.Millisecond, 14 * time.Millisecond, 13 * time.Millisecond,
					15 * time.Millisecond, 11 * time.Millisecond,
				},
				Stats: bench.LatencyStats{
					Min:    11 * time.Millisecond,
					Max:    15 * time.Millisecond,
					Mean:   13 * time.Millisecond,
					Median: 13 * time.Millisecond,
					P95:    15 * time.Millisecond,
					StdDev: time.Millisecond,
				},
			},
			{
				Variant:     variant.NameMaterializedView,
				Description: "precomputed roster",
				Rows:        500,
				Samples: []time.Duration{
					2 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond,
					2 * time.Millisecond, 2 * time.Millisecond,
				},
				Stats: bench.LatencyStats{
					Min:    2 * time.Millisecond,
					Max:    3 * time.Millisecond,
					Mean:   2200 * time.Microsecond,
					Median: 2 * time.Millisecond,
					P95:    3 * time.Millisecond,
					StdDev: 400 * time.Microsecond,
				},
			},
		},
		Sizes: []inspect.ObjectSize{
			{Name: "enrollment", Kind: inspect.KindTable, Bytes: 8192000},
			{Name: variant.ViewName, Kind: inspect.KindView, Bytes: 0},
			{Name: variant.MatViewName, Kind: inspect.KindMaterializedView, Bytes: 4096000},
		},
	}
}

func TestSaveAndLoadRunRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	want := sampleReport("run-a", started)

	if err := s.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.LoadRun(ctx, "run-a")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}

	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, want.FinishedAt)
	}

	got.StartedAt, got.FinishedAt = want.StartedAt, want.FinishedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded report differs:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestLoadRunNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadRun(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for missing run")
	}
	if code := vberrors.GetCode(err); code != vberrors.CodeRunNotFound {
		t.Errorf("code = %s, want %s", code, vberrors.CodeRunNotFound)
	}
}

func TestSaveRunDuplicateFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	r := sampleReport("run-dup", started)
	if err := s.SaveRun(ctx, r); err != nil {
		t.Fatalf("first SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, r); err == nil {
		t.Fatal("expected duplicate run ID to fail")
	}
}

func TestLatestRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRunID(ctx)
	if vberrors.GetCode(err) != vberrors.CodeRunNotFound {
		t.Fatalf("empty history: got %v, want RUN_NOT_FOUND", err)
	}

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		r := sampleReport(id, base.Add(time.Duration(i)*time.Hour))
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	latest, err := s.LatestRunID(ctx)
	if err != nil {
		t.Fatalf("LatestRunID: %v", err)
	}
	if latest != "run-new" {
		t.Errorf("latest = %s, want run-new", latest)
	}
}

func TestListRunsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		r := sampleReport(id, base.Add(time.Duration(i)*time.Minute))
		if err := s.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun %s: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-3" || runs[1].RunID != "run-2" {
		t.Errorf("order = %s, %s; want run-3, run-2", runs[0].RunID, runs[1].RunID)
	}
	if runs[0].Fastest != variant.NameMaterializedView {
		t.Errorf("fastest = %s, want %s", runs[0].Fastest, variant.NameMaterializedView)
	}
	if !runs[0].Equivalent {
		t.Error("expected equivalent summary")
	}
	if runs[0].Enrollments != 500 || runs[0].Iterations != 5 {
		t.Errorf("summary counts = %d/%d, want 500/5", runs[0].Enrollments, runs[0].Iterations)
	}
}

func TestSampleCodecRoundTrip(t *testing.T) {
	in := []time.Duration{time.Millisecond, 2 * time.Second, 0, 37 * time.Microsecond}
	blob, err := encodeSamples(in)
	if err != nil {
		t.Fatalf("encodeSamples: %v", err)
	}
	out, err := decodeSamples(blob)
	if err != nil {
		t.Fatalf("decodeSamples: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip = %v, want %v", out, in)
	}
}
