package loader

import (
	"log"
	"time"
)

const (
	// EstimatedTotalLines is the current padrón size class, used only for
	// the ETA display.
	EstimatedTotalLines = 15_000_000

	// ReportEveryBatches and ReportEveryLines set the progress cadence.
	ReportEveryBatches = 25
	ReportEveryLines   = 250_000
)

// Progress computes elapsed time, throughput, and a linear-extrapolation ETA
// from the running counters. It is purely observational and never affects
// the load.
type Progress struct {
	start         time.Time
	estTotal      int64
	lastLineCount int64
}

// NewProgress starts a progress clock. estTotal <= 0 uses
// EstimatedTotalLines.
func NewProgress(estTotal int64) *Progress {
	if estTotal <= 0 {
		estTotal = EstimatedTotalLines
	}
	return &Progress{start: time.Now(), estTotal: estTotal}
}

// Due reports whether a progress line should be emitted at this batch
// boundary.
func (p *Progress) Due(batches, lines int64) bool {
	if batches%ReportEveryBatches == 0 {
		return true
	}
	return lines-p.lastLineCount >= ReportEveryLines
}

// Snapshot returns elapsed wall-clock time, throughput in lines/sec, and the
// linear ETA (estimated remaining)/(current rate). ETA is zero until the
// rate is measurable or once the estimate is exceeded.
func (p *Progress) Snapshot(lines int64) (elapsed time.Duration, rate float64, eta time.Duration) {
	elapsed = time.Since(p.start)
	if elapsed.Seconds() > 0 {
		rate = float64(lines) / elapsed.Seconds()
	}
	if rate > 0 && lines < p.estTotal {
		remaining := float64(p.estTotal-lines) / rate
		eta = time.Duration(remaining * float64(time.Second))
	}
	return elapsed, rate, eta
}

// Report emits one progress line.
func (p *Progress) Report(lines, inserted, errors int64) {
	elapsed, rate, eta := p.Snapshot(lines)
	p.lastLineCount = lines
	log.Printf("[progress] %d lines | %d inserted | %d errors | %.0f lines/s | elapsed %v | ETA %v",
		lines, inserted, errors, rate,
		elapsed.Round(time.Second), eta.Round(time.Second))
}
