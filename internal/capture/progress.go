package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/timeutil"
)

// DefaultProgressInterval is the minimum time between console progress updates.
const DefaultProgressInterval = 100 * time.Millisecond

const bytesPerMB = 1024 * 1024

// ProgressReporter receives progress from Replicate. Progress is called after
// every sweep over the template; Done is called once when the target is met.
type ProgressReporter interface {
	Progress(bytesWritten int64, records uint64)
	Done(summary Summary)
}

// NopProgress discards all progress.
type NopProgress struct{}

// Progress does nothing.
func (NopProgress) Progress(int64, uint64) {}

// Done does nothing.
func (NopProgress) Done(Summary) {}

// ConsoleProgress keeps a single progress line on a terminal up to date.
type ConsoleProgress struct {
	out      io.Writer
	clock    timeutil.Clock
	interval time.Duration

	last    time.Time
	printed bool
}

// NewConsoleProgress returns a reporter writing to out. Updates closer
// together than interval are skipped; a non-positive interval prints every update.
func NewConsoleProgress(out io.Writer, clock timeutil.Clock, interval time.Duration) *ConsoleProgress {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &ConsoleProgress{out: out, clock: clock, interval: interval}
}

// Progress overwrites the progress line unless the last update was too recent.
func (p *ConsoleProgress) Progress(bytesWritten int64, records uint64) {
	if p.printed && p.clock.Since(p.last) < p.interval {
		return
	}
	p.last = p.clock.Now()
	p.printed = true
	p.writeLine(bytesWritten, records)
}

// Done prints the final progress line and the record total.
func (p *ConsoleProgress) Done(s Summary) {
	p.writeLine(s.BytesWritten, s.RecordsWritten)
	fmt.Fprintf(p.out, "\nTotal records: %d\n", s.RecordsWritten)
}

func (p *ConsoleProgress) writeLine(bytesWritten int64, records uint64) {
	fmt.Fprintf(p.out, "\rWritten: %.2f MB (%d records)", float64(bytesWritten)/bytesPerMB, records)
}
