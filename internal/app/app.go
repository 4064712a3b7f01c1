// Package app wires the benchmark pipeline together and manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viewbench/viewbench/internal/archive"
	"github.com/viewbench/viewbench/internal/bench"
	"github.com/viewbench/viewbench/internal/config"
	"github.com/viewbench/viewbench/internal/datagen"
	vberrors "github.com/viewbench/viewbench/internal/errors"
	"github.com/viewbench/viewbench/internal/inspect"
	"github.com/viewbench/viewbench/internal/provision"
	"github.com/viewbench/viewbench/internal/report"
	"github.com/viewbench/viewbench/internal/storage"
	"github.com/viewbench/viewbench/internal/variant"
)

// App owns the shared resources of a viewbench invocation.
type App struct {
	cfg *config.Config

	pool    *pgxpool.Pool
	history *archive.Store
}

// New creates a new App with the given configuration.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, vberrors.Wrap(vberrors.ErrCategoryValidation, vberrors.CodeInvalidConfig,
			"invalid configuration", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, vberrors.Wrap(vberrors.ErrCategoryValidation, vberrors.CodeInvalidConfig,
			"failed to create directories", err)
	}

	history, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, history: history}, nil
}

// Close releases the connection pool and the history database.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.history != nil {
		a.history.Close()
	}
}

// connect establishes the PostgreSQL connection pool.
func (a *App) connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(a.cfg.Database.DSN)
	if err != nil {
		return vberrors.NewProvisionError(vberrors.CodeConnectFailed,
			"failed to parse database DSN", err)
	}
	poolCfg.MaxConns = int32(a.cfg.Database.PoolSize)
	if a.cfg.Database.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = a.cfg.Database.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return vberrors.NewProvisionError(vberrors.CodeConnectFailed,
			"failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return vberrors.NewProvisionError(vberrors.CodeConnectFailed,
			"failed to reach database", err)
	}

	a.pool = pool
	log.Printf("Connected to PostgreSQL: pool_size=%d", a.cfg.Database.PoolSize)
	return nil
}

// Run executes the full benchmark pipeline and returns the finished report.
func (a *App) Run(ctx context.Context) (*report.Report, error) {
	if err := a.connect(ctx); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	startedAt := time.Now().UTC()
	log.Printf("Benchmark run %s started", runID)

	prov := provision.New()
	registry := variant.NewRegistry()

	var counts datagen.Counts
	if a.cfg.Bench.SkipProvision {
		log.Printf("Skipping provisioning, reusing existing schema")
		var err error
		counts, err = a.tableCounts(ctx, prov)
		if err != nil {
			return nil, err
		}
		if err := registry.Install(ctx, a.pool); err != nil {
			return nil, err
		}
		if err := registry.Refresh(ctx, a.pool); err != nil {
			return nil, err
		}
	} else {
		if err := registry.Drop(ctx, a.pool); err != nil {
			return nil, err
		}
		if err := prov.Reset(ctx, a.pool); err != nil {
			return nil, err
		}
		log.Printf("Schema provisioned: %v", prov.TableNames())

		counts = datagen.Counts{
			Students:    a.cfg.Scale.Students,
			Courses:     a.cfg.Scale.Courses,
			Classes:     a.cfg.Scale.Classes,
			Enrollments: a.cfg.Scale.Enrollments,
		}
		gen := datagen.New(runID, counts)
		if _, err := gen.Load(ctx, a.pool); err != nil {
			return nil, err
		}
		log.Printf("Loaded %d rows across %d tables", counts.Total(), len(prov.TableNames()))

		// The materialized view is created after the load so it is
		// populated at creation time.
		if err := registry.Install(ctx, a.pool); err != nil {
			return nil, err
		}
		log.Printf("Query variants installed: %s, %s", variant.ViewName, variant.MatViewName)
	}

	verified := false
	equivalent := false
	if a.cfg.Bench.Verify {
		result, err := registry.VerifyEquivalence(ctx, a.pool)
		if err != nil {
			return nil, err
		}
		verified = true
		equivalent = result.Equivalent
		if !equivalent {
			return nil, vberrors.NewBenchError(vberrors.CodeNotEquivalent,
				"query variants returned diverging result sets", nil)
		}
		log.Printf("Variant equivalence verified: %d rows per variant", result.Checks[0].BaseRows)
	}

	runner := bench.NewRunner(bench.NewPoolExecutor(a.pool), bench.Options{
		Warmup:       a.cfg.Bench.Warmup,
		Iterations:   a.cfg.Bench.Iterations,
		QueryTimeout: a.cfg.Bench.QueryTimeout,
	})
	results, err := runner.Run(ctx, registry.Variants())
	if err != nil {
		return nil, err
	}

	objectNames := append(prov.TableNames(), variant.ViewName, variant.MatViewName)
	sizes, err := inspect.New(a.pool).Sizes(ctx, objectNames)
	if err != nil {
		return nil, err
	}

	rep := &report.Report{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Counts:     counts,
		Warmup:     a.cfg.Bench.Warmup,
		Iterations: a.cfg.Bench.Iterations,
		Verified:   verified,
		Equivalent: equivalent,
		Results:    results,
		Sizes:      sizes,
	}

	if err := a.history.SaveRun(ctx, rep); err != nil {
		return nil, err
	}
	log.Printf("Run %s archived to %s", runID, a.cfg.Archive.Path)

	if err := a.writeReport(ctx, rep); err != nil {
		return nil, err
	}

	if !a.cfg.Bench.Keep {
		if err := registry.Drop(ctx, a.pool); err != nil {
			return nil, err
		}
		if err := prov.DropSchema(ctx, a.pool); err != nil {
			return nil, err
		}
		log.Printf("Schema dropped")
	}

	log.Printf("Benchmark run %s finished: fastest=%s", runID, rep.Fastest())
	return rep, nil
}

// tableCounts reads actual row counts when reusing an existing schema.
func (a *App) tableCounts(ctx context.Context, prov *provision.Provisioner) (datagen.Counts, error) {
	var counts datagen.Counts
	dests := map[string]*int{
		"student":    &counts.Students,
		"course":     &counts.Courses,
		"class":      &counts.Classes,
		"enrollment": &counts.Enrollments,
	}
	for _, name := range prov.TableNames() {
		query := fmt.Sprintf("SELECT count(*) FROM %s", name)
		if err := a.pool.QueryRow(ctx, query).Scan(dests[name]); err != nil {
			return counts, vberrors.NewProvisionError(vberrors.CodeDDLFailed,
				fmt.Sprintf("failed to count rows in %s", name), err)
		}
	}
	return counts, nil
}

// writeReport renders the report, writes it locally, and publishes it.
func (a *App) writeReport(ctx context.Context, rep *report.Report) error {
	rendered, err := report.Render(rep, a.cfg.Report.Format)
	if err != nil {
		return err
	}

	filename := report.Filename(rep.RunID, a.cfg.Report.Format)
	outPath := filepath.Join(a.cfg.Report.OutputDir, filename)
	if err := os.WriteFile(outPath, rendered, 0644); err != nil {
		return vberrors.NewArchiveError(vberrors.CodeWriteFailed,
			"failed to write report to "+outPath, err)
	}
	log.Printf("Report written: %s", outPath)

	store, key, err := a.publishTarget(ctx, filename)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	if err := store.Put(ctx, key, rendered); err != nil {
		return err
	}
	log.Printf("Report published: type=%s key=%s", a.cfg.Publish.Type, key)
	return nil
}

// publishTarget resolves the configured publish destination. A nil store
// means publishing is disabled.
func (a *App) publishTarget(ctx context.Context, filename string) (storage.ArtifactStore, string, error) {
	switch a.cfg.Publish.Type {
	case "none":
		return nil, "", nil
	case "local":
		store, err := storage.NewLocalStore(a.cfg.Publish.Path)
		if err != nil {
			return nil, "", err
		}
		return store, filename, nil
	case "s3":
		store, err := storage.NewS3Store(ctx, a.cfg.Publish.S3.Bucket, storage.S3Config{
			Region:       a.cfg.Publish.S3.Region,
			Endpoint:     a.cfg.Publish.S3.Endpoint,
			UsePathStyle: a.cfg.Publish.S3.Endpoint != "",
		})
		if err != nil {
			return nil, "", err
		}
		return store, path.Join(a.cfg.Publish.S3.Prefix, filename), nil
	default:
		return nil, "", vberrors.NewValidationError(vberrors.CodeInvalidConfig,
			"unsupported publish type: "+a.cfg.Publish.Type)
	}
}

// Report renders an archived run. An empty runID selects the latest run.
func (a *App) Report(ctx context.Context, runID string) ([]byte, error) {
	if runID == "" {
		latest, err := a.history.LatestRunID(ctx)
		if err != nil {
			return nil, err
		}
		runID = latest
	}

	rep, err := a.history.LoadRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return report.Render(rep, a.cfg.Report.Format)
}

// History returns summaries of archived runs, most recent first.
func (a *App) History(ctx context.Context, limit int) ([]archive.RunSummary, error) {
	return a.history.ListRuns(ctx, limit)
}
