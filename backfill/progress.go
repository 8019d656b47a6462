package backfill

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Progress prints a single counter line to a writer, rewritten in place as a
// sweep advances. Batch workers may call Add concurrently.
type Progress struct {
	mu          sync.Mutex
	w           io.Writer
	total       int
	done        int
	reportEvery int
	nextReport  int
	begun       time.Time
}

// NewProgress creates a counter over total chunks that refreshes the line
// every reportEvery chunks. Output usually goes to os.Stderr so it does not
// mix with command results.
func NewProgress(w io.Writer, total, reportEvery int) *Progress {
	return &Progress{w: w, total: total, reportEvery: reportEvery}
}

// Start resets the counter and records the sweep start time.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.begun = time.Now()
	p.done = 0
	p.nextReport = p.reportEvery
}

// Add records n more processed chunks, capped at the total, and refreshes
// the line when a report is due. A no-op before Start.
func (p *Progress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return
	}

	p.done += n
	if p.done > p.total {
		p.done = p.total
	}
	if p.done >= p.nextReport {
		p.print()
		p.nextReport = p.done + p.reportEvery
	}
}

// Finish forces the counter to the total, prints a last report, and ends
// the line.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return
	}

	p.done = p.total
	p.print()
	fmt.Fprintln(p.w)
}

// Elapsed returns how long the sweep has been running.
func (p *Progress) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.begun.IsZero() {
		return 0
	}
	return time.Since(p.begun)
}

// print writes the counter line. Callers hold the lock.
func (p *Progress) print() {
	rate := float64(p.done) / time.Since(p.begun).Seconds()

	pct := 0.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.w, "\rProgress: %d/%d (%.1f%%) - %.1f chunks/s",
		p.done, p.total, pct, rate)
}
