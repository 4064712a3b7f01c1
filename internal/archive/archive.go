// Package archive persists benchmark run history in a local SQLite database.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	_ "github.com/mattn/go-sqlite3"

	"github.com/viewbench/viewbench/internal/bench"
	vberrors "github.com/viewbench/viewbench/internal/errors"
	"github.com/viewbench/viewbench/internal/inspect"
	"github.com/viewbench/viewbench/internal/report"
)

// schemaSQL holds the history schema. Raw latency samples are stored as
// snappy-compressed JSON so full distributions survive alongside the
// aggregates.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		students INTEGER NOT NULL,
		courses INTEGER NOT NULL,
		classes INTEGER NOT NULL,
		enrollments INTEGER NOT NULL,
		warmup INTEGER NOT NULL,
		iterations INTEGER NOT NULL,
		verified INTEGER NOT NULL,
		equivalent INTEGER NOT NULL,
		fastest TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS variant_results (
		run_id TEXT NOT NULL REFERENCES runs (run_id),
		position INTEGER NOT NULL,
		variant TEXT NOT NULL,
		description TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		min_ns INTEGER NOT NULL,
		max_ns INTEGER NOT NULL,
		mean_ns INTEGER NOT NULL,
		median_ns INTEGER NOT NULL,
		p95_ns INTEGER NOT NULL,
		stddev_ns INTEGER NOT NULL,
		samples BLOB NOT NULL,
		PRIMARY KEY (run_id, variant)
	)`,
	`CREATE TABLE IF NOT EXISTS object_sizes (
		run_id TEXT NOT NULL REFERENCES runs (run_id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		PRIMARY KEY (run_id, name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC)`,
}

// RunSummary is one row of the run history listing.
type RunSummary struct {
	RunID       string
	StartedAt   time.Time
	Enrollments int
	Iterations  int
	Fastest     string
	Equivalent  bool
}

// Store persists and retrieves benchmark runs.
type Store struct {
	db *sql.DB
	mu sync.Mutex // single writer
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to open history database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the history database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	for _, stmt := range schemaSQL {
		if _, err := s.db.Exec(stmt); err != nil {
			return vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to initialize history schema", err)
		}
	}
	return nil
}

// SaveRun persists a complete run atomically.
func (s *Store) SaveRun(ctx context.Context, r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, started_at, finished_at,
			students, courses, classes, enrollments,
			warmup, iterations, verified, equivalent, fastest
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.StartedAt.UnixNano(), r.FinishedAt.UnixNano(),
		r.Counts.Students, r.Counts.Courses, r.Counts.Classes, r.Counts.Enrollments,
		r.Warmup, r.Iterations, boolToInt(r.Verified), boolToInt(r.Equivalent), r.Fastest(),
	)
	if err != nil {
		return vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			fmt.Sprintf("failed to insert run %s", r.RunID), err)
	}

	for i, res := range r.Results {
		samples, err := encodeSamples(res.Samples)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO variant_results (
				run_id, position, variant, description, row_count,
				min_ns, max_ns, mean_ns, median_ns, p95_ns, stddev_ns, samples
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, res.Variant, res.Description, res.Rows,
			int64(res.Stats.Min), int64(res.Stats.Max), int64(res.Stats.Mean),
			int64(res.Stats.Median), int64(res.Stats.P95), int64(res.Stats.StdDev),
			samples,
		)
		if err != nil {
			return vberrors.NewArchiveError(vberrors.CodeWriteFailed,
				fmt.Sprintf("failed to insert result for variant %s", res.Variant), err)
		}
	}

	for i, size := range r.Sizes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO object_sizes (run_id, position, name, kind, size_bytes)
			VALUES (?, ?, ?, ?, ?)`,
			r.RunID, i, size.Name, string(size.Kind), size.Bytes,
		)
		if err != nil {
			return vberrors.NewArchiveError(vberrors.CodeWriteFailed,
				fmt.Sprintf("failed to insert size for object %s", size.Name), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to commit run", err)
	}
	return nil
}

// LoadRun rebuilds a complete report from the archive.
func (s *Store) LoadRun(ctx context.Context, runID string) (*report.Report, error) {
	r := &report.Report{RunID: runID}

	var startedNs, finishedNs int64
	var verified, equivalent int
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at, finished_at, students, courses, classes, enrollments,
		       warmup, iterations, verified, equivalent
		FROM runs WHERE run_id = ?`, runID,
	).Scan(&startedNs, &finishedNs,
		&r.Counts.Students, &r.Counts.Courses, &r.Counts.Classes, &r.Counts.Enrollments,
		&r.Warmup, &r.Iterations, &verified, &equivalent)
	if err == sql.ErrNoRows {
		return nil, vberrors.NewArchiveError(vberrors.CodeRunNotFound,
			fmt.Sprintf("run %s not found in history", runID), nil)
	}
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			fmt.Sprintf("failed to load run %s", runID), err)
	}
	r.StartedAt = time.Unix(0, startedNs).UTC()
	r.FinishedAt = time.Unix(0, finishedNs).UTC()
	r.Verified = verified != 0
	r.Equivalent = equivalent != 0

	rows, err := s.db.QueryContext(ctx, `
		SELECT variant, description, row_count,
		       min_ns, max_ns, mean_ns, median_ns, p95_ns, stddev_ns, samples
		FROM variant_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			fmt.Sprintf("failed to load results for run %s", runID), err)
	}
	defer rows.Close()

	for rows.Next() {
		var res bench.VariantResult
		var minNs, maxNs, meanNs, medianNs, p95Ns, stddevNs int64
		var blob []byte
		if err := rows.Scan(&res.Variant, &res.Description, &res.Rows,
			&minNs, &maxNs, &meanNs, &medianNs, &p95Ns, &stddevNs, &blob); err != nil {
			return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
				"failed to scan variant result", err)
		}
		res.Stats = bench.LatencyStats{
			Min:    time.Duration(minNs),
			Max:    time.Duration(maxNs),
			Mean:   time.Duration(meanNs),
			Median: time.Duration(medianNs),
			P95:    time.Duration(p95Ns),
			StdDev: time.Duration(stddevNs),
		}
		res.Samples, err = decodeSamples(blob)
		if err != nil {
			return nil, err
		}
		r.Results = append(r.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			"failed to iterate variant results", err)
	}

	sizeRows, err := s.db.QueryContext(ctx, `
		SELECT name, kind, size_bytes
		FROM object_sizes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			fmt.Sprintf("failed to load sizes for run %s", runID), err)
	}
	defer sizeRows.Close()

	for sizeRows.Next() {
		var size inspect.ObjectSize
		var kind string
		if err := sizeRows.Scan(&size.Name, &kind, &size.Bytes); err != nil {
			return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
				"failed to scan object size", err)
		}
		size.Kind = inspect.ObjectKind(kind)
		r.Sizes = append(r.Sizes, size)
	}
	if err := sizeRows.Err(); err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			"failed to iterate object sizes", err)
	}

	return r, nil
}

// LatestRunID returns the most recently started run.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id FROM runs ORDER BY started_at DESC LIMIT 1").Scan(&runID)
	if err == sql.ErrNoRows {
		return "", vberrors.NewArchiveError(vberrors.CodeRunNotFound, "history is empty", nil)
	}
	if err != nil {
		return "", vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to query latest run", err)
	}
	return runID, nil
}

// ListRuns returns run summaries, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, enrollments, iterations, fastest, equivalent
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to list runs", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var startedNs int64
		var equivalent int
		if err := rows.Scan(&rs.RunID, &startedNs, &rs.Enrollments, &rs.Iterations, &rs.Fastest, &equivalent); err != nil {
			return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to scan run summary", err)
		}
		rs.StartedAt = time.Unix(0, startedNs).UTC()
		rs.Equivalent = equivalent != 0
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to iterate run summaries", err)
	}
	return out, nil
}

// encodeSamples compresses latency samples as snappy-framed JSON.
func encodeSamples(samples []time.Duration) ([]byte, error) {
	ns := make([]int64, len(samples))
	for i, s := range samples {
		ns[i] = int64(s)
	}
	raw, err := json.Marshal(ns)
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to marshal samples", err)
	}
	return snappy.Encode(nil, raw), nil
}

// decodeSamples reverses encodeSamples.
func decodeSamples(blob []byte) ([]time.Duration, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to decompress samples", err)
	}
	var ns []int64
	if err := json.Unmarshal(raw, &ns); err != nil {
		return nil, vberrors.NewArchiveError(vberrors.CodeWriteFailed, "failed to unmarshal samples", err)
	}
	out := make([]time.Duration, len(ns))
	for i, v := range ns {
		out[i] = time.Duration(v)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
