package ingestion

import (
	"context"
	"log/slog"
	"time"
)

// Stage is one named step of an ingestion run.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// StageReport is the outcome of one stage.
type StageReport struct {
	Name    string
	Elapsed time.Duration
	Err     error
}

// RunStages runs every stage in order and reports each one.
// A failing stage is logged and the next stage still runs; only a cancelled
// context stops the run early. Stages skipped because of cancellation are
// reported with the context error.
func RunStages(ctx context.Context, logger *slog.Logger, stages ...Stage) []StageReport {
	if logger == nil {
		logger = slog.Default()
	}

	total := time.Now()
	reports := make([]StageReport, 0, len(stages))
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			reports = append(reports, StageReport{Name: stage.Name, Err: err})
			continue
		}

		start := time.Now()
		err := stage.Run(ctx)
		report := StageReport{Name: stage.Name, Elapsed: time.Since(start), Err: err}
		reports = append(reports, report)

		if err != nil {
			logger.Error("stage failed", "stage", stage.Name, "elapsed", report.Elapsed, "err", err)
			continue
		}
		logger.Info("stage finished", "stage", stage.Name, "elapsed", report.Elapsed)
	}

	logger.Info("run finished", "stages", len(stages), "elapsed", time.Since(total))
	return reports
}
