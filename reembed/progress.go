package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints one self-overwriting status line per reported step:
//
//	label: done/total (pct%), failed failed, rate records/s
//
// Safe for concurrent use by pool workers.
type ProgressTracker struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	total    int
	done     int
	failed   int
	every    int
	reported int
	started  time.Time
	running  bool
}

// ProgressOption customizes a ProgressTracker.
type ProgressOption func(*ProgressTracker)

// WithLabel sets the line prefix. The default is "Progress".
func WithLabel(label string) ProgressOption {
	return func(p *ProgressTracker) {
		p.label = label
	}
}

// NewProgressTracker reports to out whenever at least every records have
// completed since the last line. every < 1 reports on each record.
func NewProgressTracker(out io.Writer, total, every int, opts ...ProgressOption) *ProgressTracker {
	p := &ProgressTracker{
		out:   out,
		label: "Progress",
		total: total,
		every: max(every, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start zeroes the counters and starts the clock. Calls before Start are ignored.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = time.Now()
	p.running = true
	p.done, p.failed, p.reported = 0, 0, 0
}

// Update sets the completed count.
func (p *ProgressTracker) Update(done int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.advance(done)
	}
}

// Increment records n more completed records.
func (p *ProgressTracker) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.advance(p.done + n)
	}
}

// Fail records n more records that completed with an error. They count
// toward done as well.
func (p *ProgressTracker) Fail(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.failed += n
		p.advance(p.done + n)
	}
}

// Finish prints the final line with done as reached and terminates it.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	p.print()
	fmt.Fprintln(p.out)
	p.running = false
}

// Elapsed is the time since Start, zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started.IsZero() {
		return 0
	}
	return time.Since(p.started)
}

// advance and print expect p.mu held.
func (p *ProgressTracker) advance(done int) {
	p.done = min(done, p.total)
	if p.done-p.reported >= p.every {
		p.print()
		p.reported = p.done
	}
}

func (p *ProgressTracker) print() {
	var pct, rate float64
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}
	if secs := time.Since(p.started).Seconds(); secs > 0 {
		rate = float64(p.done) / secs
	}
	fmt.Fprintf(p.out, "\r%s: %d/%d (%.1f%%), %d failed, %.1f records/s",
		p.label, p.done, p.total, pct, p.failed, rate)
}
