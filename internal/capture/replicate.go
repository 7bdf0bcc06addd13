package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/timeutil"
)

const (
	writeBufferSize = 1 << 20

	// ctxCheckInterval is how many records are emitted between context checks.
	ctxCheckInterval = 4096
)

// ReplicateOptions configures a Replicate run.
type ReplicateOptions struct {
	// TargetBytes is the minimum output size, global header included.
	TargetBytes int64

	// StartTime is the timestamp base. Only whole seconds are used. When zero,
	// the current second of Clock is used.
	StartTime time.Time

	// Clock defaults to timeutil.RealClock.
	Clock timeutil.Clock

	// Progress defaults to NopProgress.
	Progress ProgressReporter

	// RunID is copied into the Summary.
	RunID string
}

// Summary describes a finished Replicate run.
type Summary struct {
	RunID          string
	RecordsWritten uint64
	BytesWritten   int64
	Sweeps         int
	StartTime      time.Time
	Duration       time.Duration
}

// Replicate writes tmpl's global header to w and then emits the template
// records in order, cyclically, until at least opts.TargetBytes bytes have
// been written. The record that crosses the target is written in full, so
// the output exceeds the target by less than one record.
//
// Each emitted record keeps its template lengths and payload; its timestamp is
// derived from the number of records emitted so far (see syntheticHeader).
//
// If ctx is cancelled the records written so far are flushed and ctx.Err()
// is returned; the output is then a valid prefix.
func Replicate(ctx context.Context, w io.Writer, tmpl *Template, opts ReplicateOptions) (Summary, error) {
	if tmpl == nil || len(tmpl.Records) == 0 {
		return Summary{}, ErrEmptyTemplate
	}

	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	start := opts.StartTime
	if start.IsZero() {
		start = timeutil.WholeSecond(clock)
	}
	base := uint32(start.Unix())

	summary := Summary{
		RunID:     opts.RunID,
		StartTime: time.Unix(start.Unix(), 0),
	}
	began := clock.Now()

	bw := bufio.NewWriterSize(w, writeBufferSize)
	em := newEmitter(bw)

	if _, err := bw.Write(tmpl.Header[:]); err != nil {
		return summary, fmt.Errorf("failed to write global header: %w", err)
	}

	current := int64(GlobalHeaderLen)
	var emitted uint64

	finish := func() error {
		summary.RecordsWritten = emitted
		summary.BytesWritten = current
		summary.Duration = clock.Since(began)
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("failed to flush output: %w", err)
		}
		return nil
	}

	for current < opts.TargetBytes {
		for i := range tmpl.Records {
			if emitted%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return summary, errors.Join(err, finish())
				}
			}

			rec := &tmpl.Records[i]
			if err := em.emit(syntheticHeader(base, emitted, rec), rec.Payload); err != nil {
				return summary, fmt.Errorf("failed to write record %d: %w", emitted, err)
			}
			current += RecordHeaderLen + int64(rec.InclLen)
			emitted++

			if current >= opts.TargetBytes {
				break
			}
		}
		summary.Sweeps++
		progress.Progress(current, emitted)
	}

	if err := finish(); err != nil {
		return summary, err
	}
	progress.Done(summary)
	return summary, nil
}

// emitter writes record headers and payloads. Records pcapgo accepts go
// through its writer; records whose included length exceeds the original
// length, which pcapgo rejects, are encoded directly so they are still
// copied unchanged.
type emitter struct {
	w   io.Writer
	pw  *pcapgo.Writer
	raw [RecordHeaderLen]byte
}

func newEmitter(w io.Writer) *emitter {
	return &emitter{w: w, pw: pcapgo.NewWriter(w)}
}

func (e *emitter) emit(h RecordHeader, payload []byte) error {
	if h.InclLen <= h.OrigLen {
		ci := gopacket.CaptureInfo{
			Timestamp:     h.Time(),
			CaptureLength: int(h.InclLen),
			Length:        int(h.OrigLen),
		}
		return e.pw.WritePacket(ci, payload)
	}

	h.put(e.raw[:])
	if _, err := e.w.Write(e.raw[:]); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}
