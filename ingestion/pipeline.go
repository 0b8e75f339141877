package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pocketkb/ai"
	"github.com/poiesic/pocketkb/core"
	"github.com/poiesic/pocketkb/reembed"
	"github.com/poiesic/pocketkb/storage"
)

const (
	// DefaultMaxAttempts is how often one external call is tried before the record fails.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the first backoff delay; it doubles per retry.
	DefaultRetryDelay = time.Second
	// DefaultCallTimeout bounds a single embed or store attempt.
	DefaultCallTimeout = 30 * time.Second
)

// Pipeline embeds and stores batches of knowledge records.
type Pipeline struct {
	repository  storage.KnowledgeRepository
	embedder    ai.Embedder
	tracker     *Tracker
	batches     storage.BatchRepository
	pool        *ants.Pool
	proc        processor
	poolSize    int
	maxAttempts int
	retryDelay  time.Duration
	callTimeout time.Duration
	runID       string
	progress    io.Writer
	logger      *slog.Logger
}

// BatchResult summarizes one IngestBatch call.
type BatchResult struct {
	Key              string
	AlreadyProcessed bool
	Total            int // Records handed in
	Stored           int
	Skipped          int // Invalid records, never sent to the embedder
	Failed           int
	Elapsed          time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets how many records are processed concurrently.
// Default is 1, which processes records strictly in order.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		p.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithRetry sets how many attempts each embed and store call gets and the
// initial backoff delay.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryDelay = delay
		return nil
	}
}

// WithCallTimeout bounds every embed and store attempt. Zero disables the bound.
func WithCallTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		p.callTimeout = timeout
		return nil
	}
}

// WithBatchRepository persists a BatchState for every completed batch.
func WithBatchRepository(repo storage.BatchRepository) Option {
	return func(p *Pipeline) error {
		p.batches = repo
		return nil
	}
}

// WithRunID tags every log line of the pipeline with id.
// Default is a random UUID.
func WithRunID(id string) Option {
	return func(p *Pipeline) error {
		if id != "" {
			p.runID = id
		}
		return nil
	}
}

// WithProgress writes per-batch progress lines to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	repository storage.KnowledgeRepository,
	provider ai.AIProvider,
	tracker *Tracker,
	opts ...Option,
) (*Pipeline, error) {
	if repository == nil {
		return nil, ErrKnowledgeRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if tracker == nil {
		return nil, ErrTrackerRequired
	}

	// Create pipeline with defaults
	p := &Pipeline{
		repository:  repository,
		embedder:    provider.Embedder(),
		tracker:     tracker,
		poolSize:    1,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		callTimeout: DefaultCallTimeout,
		runID:       uuid.NewString(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion", "run", p.runID)

	// Create the pool and processor after options are applied (so they get final config)
	pool, err := ants.NewPool(p.poolSize)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	proc, err := newEmbeddingProcessor(repository, p.embedder, p.maxAttempts, p.retryDelay, p.callTimeout, p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.proc = proc

	return p, nil
}

// RunID returns the id attached to this pipeline's log lines.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Tracker returns the tracker the pipeline consults.
func (p *Pipeline) Tracker() *Tracker {
	return p.tracker
}

// IngestBatch embeds and stores every valid record of one batch.
// A batch already marked processed is skipped. Invalid records are skipped
// and counted. Record failures do not stop their siblings; when any record
// failed the batch stays unprocessed and the returned error wraps
// ErrBatchIncomplete together with every record error.
func (p *Pipeline) IngestBatch(ctx context.Context, key string, records []*core.KnowledgeRecord) (*BatchResult, error) {
	if key == "" {
		return nil, ErrEmptyBatchKey
	}

	result := &BatchResult{Key: key, Total: len(records)}
	logger := p.logger.With("batch", key)

	if p.tracker.IsProcessed(key) {
		result.AlreadyProcessed = true
		logger.Info("batch already processed, skipping")
		return result, nil
	}

	start := time.Now()
	valid := make([]*core.KnowledgeRecord, 0, len(records))
	for i, record := range records {
		if err := core.ValidateKnowledgeRecord(record); err != nil {
			logger.Warn("skipping invalid record", "index", i, "err", err)
			result.Skipped++
			continue
		}
		valid = append(valid, record)
	}

	var progress *reembed.ProgressTracker
	if p.progress != nil {
		progress = reembed.NewProgressTracker(p.progress, len(valid), progressInterval(len(valid)), reembed.WithLabel(key))
		progress.Start()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}

	submitted := 0
	for _, record := range valid {
		if ctx.Err() != nil {
			break
		}
		submitted++

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			err := p.proc.process(ctx, record)
			if err != nil {
				logger.Error("record failed", "link", record.Link, "err", err)
				fail(err)
			}
			switch {
			case progress == nil:
			case err != nil:
				progress.Fail(1)
			default:
				progress.Increment(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(fmt.Errorf("submit %s: %w", record.Link, submitErr))
		}
	}
	wg.Wait()

	if progress != nil {
		progress.Finish()
	}

	recordFailures := len(errs)
	if unsubmitted := len(valid) - submitted; unsubmitted > 0 {
		errs = append(errs, fmt.Errorf("%d records not attempted: %w", unsubmitted, ctx.Err()))
		result.Failed = unsubmitted
	}
	result.Elapsed = time.Since(start)
	result.Failed += recordFailures
	result.Stored = submitted - recordFailures

	if len(errs) > 0 {
		err := errors.Join(append([]error{fmt.Errorf("%w: %s", ErrBatchIncomplete, key)}, errs...)...)
		logger.Error("batch failed", "elapsed", result.Elapsed, "failed", result.Failed, "err", err)
		return result, err
	}

	p.tracker.MarkProcessed(key)
	if p.batches != nil {
		state := &core.BatchState{Key: key, Records: result.Stored, ProcessedAt: time.Now().UTC()}
		if err := p.batches.SaveBatchState(ctx, state); err != nil {
			// The batch itself succeeded; only the persisted marker is missing
			logger.Warn("failed to persist batch state", "err", err)
		}
	}

	logger.Info("batch processed",
		"elapsed", result.Elapsed,
		"stored", result.Stored,
		"skipped", result.Skipped)
	return result, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// progressInterval reports roughly every tenth of a batch.
func progressInterval(total int) int {
	return max(1, total/10)
}
