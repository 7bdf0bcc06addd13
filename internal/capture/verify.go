package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/fsutil"
)

// VerifyReport summarises a generated capture read back through pcapgo.
type VerifyReport struct {
	LinkType       layers.LinkType
	Records        uint64
	PayloadBytes   int64
	FirstTimestamp time.Time
	LastTimestamp  time.Time

	// Regressions counts records whose timestamp is earlier than the
	// record before it.
	Regressions uint64
}

// Monotonic reports whether timestamps never went backwards.
func (r *VerifyReport) Monotonic() bool {
	return r.Regressions == 0
}

// FileBytes is the capture size implied by the records that were read.
func (r *VerifyReport) FileBytes() int64 {
	return GlobalHeaderLen + int64(r.Records)*RecordHeaderLen + r.PayloadBytes
}

// VerifyCapture reads every record in r and checks that the stream decodes
// cleanly. Only captures with a standard magic number can be verified, and
// a record cut short at the end of the input is an error.
func VerifyCapture(r io.Reader) (*VerifyReport, error) {
	pr, err := pcapgo.NewReader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("failed to read capture header: %w", err)
	}

	report := &VerifyReport{LinkType: pr.LinkType()}
	var prev time.Time
	for {
		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, fmt.Errorf("failed to read record %d: %w", report.Records, err)
		}

		if report.Records == 0 {
			report.FirstTimestamp = ci.Timestamp
		} else if ci.Timestamp.Before(prev) {
			report.Regressions++
		}
		prev = ci.Timestamp
		report.LastTimestamp = ci.Timestamp
		report.Records++
		report.PayloadBytes += int64(len(data))
	}

	return report, nil
}

// VerifyFile opens path on fsys and verifies it with VerifyCapture.
func VerifyFile(fsys fsutil.FileSystem, path string) (*VerifyReport, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for verification: %w", path, err)
	}
	defer f.Close()

	report, err := VerifyCapture(f)
	if err != nil {
		return report, fmt.Errorf("verification of %s failed: %w", path, err)
	}
	return report, nil
}
