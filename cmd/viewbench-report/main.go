// Package main implements viewbench-report, a standalone renderer for
// archived benchmark runs. It reads the history database written by
// viewbench and renders a single run without touching PostgreSQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/viewbench/viewbench/internal/archive"
	"github.com/viewbench/viewbench/internal/config"
	"github.com/viewbench/viewbench/internal/report"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		archivePath string
		runID       string
		format      string
		outPath     string
		showVersion bool
	)

	flag.StringVar(&archivePath, "archive", "./data/viewbench/history.db", "Path to the history database")
	flag.StringVar(&runID, "run-id", "", "Run ID to render (default: latest)")
	flag.StringVar(&format, "format", config.FormatMarkdown, "Report format: markdown, table, json")
	flag.StringVar(&outPath, "out", "", "Output file (default: stdout)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "viewbench-report - Render archived viewbench runs\n\n")
		fmt.Fprintf(os.Stderr, "Usage: viewbench-report [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("viewbench-report version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if err := render(archivePath, runID, format, outPath); err != nil {
		log.Fatalf("%v", err)
	}
}

func render(archivePath, runID, format, outPath string) error {
	store, err := archive.Open(archivePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if runID == "" {
		runID, err = store.LatestRunID(ctx)
		if err != nil {
			return err
		}
	}

	rep, err := store.LoadRun(ctx, runID)
	if err != nil {
		return err
	}

	rendered, err := report.Render(rep, format)
	if err != nil {
		return err
	}

	if outPath == "" {
		fmt.Println(string(rendered))
		return nil
	}
	if err := os.WriteFile(outPath, rendered, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Printf("Report written: %s", outPath)
	return nil
}
