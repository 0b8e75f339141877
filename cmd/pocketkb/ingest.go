package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/pocketkb"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/export"
	"github.com/poiesic/pocketkb/ingestion"
	"github.com/poiesic/pocketkb/thread"
	"github.com/urfave/cli/v2"
)

func ingestCommand(c *cli.Context) error {
	ctx := commandContext(c)

	githubFiles := c.StringSlice("github")
	discordFiles := c.StringSlice("discord")
	if len(githubFiles) == 0 && len(discordFiles) == 0 {
		return fmt.Errorf("nothing to ingest: pass --github and/or --discord files")
	}
	mode := c.String("discord-mode")
	if mode != "threads" && mode != "messages" {
		return fmt.Errorf("invalid discord mode %q: must be threads or messages", mode)
	}

	// Configuration errors are fatal before anything is opened
	cfg, err := aiConfig(c)
	if err != nil {
		return err
	}

	kb, err := pocketkb.Open(c.String("db"), pocketkb.WithAIConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	tracker := ingestion.NewTracker(c.StringSlice("processed")...)
	runID := uuid.NewString()
	opts := []ingestion.Option{
		ingestion.WithPoolSize(c.Int("workers")),
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
		ingestion.WithCallTimeout(c.Duration("call-timeout")),
		ingestion.WithRunID(runID),
	}
	if c.Bool("remember-batches") {
		persisted, err := ingestion.LoadTracker(ctx, kb.BatchRepository())
		if err != nil {
			return fmt.Errorf("failed to load batch states: %w", err)
		}
		for _, key := range persisted.Keys() {
			tracker.MarkProcessed(key)
		}
		opts = append(opts, ingestion.WithBatchRepository(kb.BatchRepository()))
	}
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(os.Stderr))
	}

	pipeline, err := kb.NewIngestionPipeline(tracker, opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	logger := slog.Default().With("run", runID)
	logger.Info("ingestion started",
		"db", c.String("db"),
		"github", len(githubFiles),
		"discord", len(discordFiles),
		"workers", c.Int("workers"))

	var stages []ingestion.Stage
	if len(githubFiles) > 0 {
		stages = append(stages, ingestion.Stage{
			Name: "github",
			Run: func(ctx context.Context) error {
				return ingestIssues(ctx, pipeline, githubFiles, c.Int("github-sample"))
			},
		})
	}
	if len(discordFiles) > 0 {
		stages = append(stages, ingestion.Stage{
			Name: "discord",
			Run: func(ctx context.Context) error {
				return ingestChat(ctx, pipeline, discordBatchKey(c.String("discord-batch"), mode), discordFiles, mode)
			},
		})
	}

	reports := ingestion.RunStages(ctx, logger, stages...)

	var failed []string
	for _, report := range reports {
		status := "ok"
		if report.Err != nil {
			status = "failed: " + report.Err.Error()
			failed = append(failed, report.Name)
		}
		fmt.Fprintf(c.App.Writer, "%-8s %10v  %s\n", report.Name, report.Elapsed.Round(time.Millisecond), status)
	}
	if len(failed) > 0 {
		return fmt.Errorf("stages failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// discordBatchKey returns key, or a mode-specific default so thread and
// message runs are tracked separately.
func discordBatchKey(key, mode string) string {
	if key != "" {
		return key
	}
	return "discord-" + mode
}

// ingestIssues ingests every issue file as its own batch. A failing file
// does not stop the others.
func ingestIssues(ctx context.Context, pipeline *ingestion.Pipeline, paths []string, sample int) error {
	var errs []error
	for _, path := range paths {
		issues, err := export.LoadIssueFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if sample > 0 {
			issues = export.RecentIssues(issues, sample)
		}
		if _, err := pipeline.IngestBatch(ctx, path, export.IssueRecords(issues)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ingestChat ingests all chat exports as one batch, as threads or as
// standalone root messages.
func ingestChat(ctx context.Context, pipeline *ingestion.Pipeline, key string, paths []string, mode string) error {
	msgs, err := export.LoadChatExportFiles(paths...)
	if err != nil {
		return err
	}

	var records []*core.KnowledgeRecord
	switch mode {
	case "messages":
		records = export.MessageRecords(msgs)
	default:
		forest := thread.Reconstruct(msgs)
		if len(forest.Orphans) > 0 {
			slog.Warn("orphaned replies not ingested", "count", len(forest.Orphans))
		}
		records, err = thread.Records(forest)
		if err != nil {
			return err
		}
	}

	_, err = pipeline.IngestBatch(ctx, key, records)
	return err
}
