// Package stress runs a complete stress-file generation: it loads the
// template capture, replicates it into the output file and optionally
// verifies and records the result.
package stress

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/capture"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/config"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/db"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/fsutil"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/monitoring"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/timeutil"
)

// ErrVerificationFailed is returned when the generated file does not read
// back as the records that were written.
var ErrVerificationFailed = errors.New("generated capture failed verification")

// RunRecorder stores finished runs. *db.DB implements it.
type RunRecorder interface {
	RecordRun(r db.Run) error
}

// Deps holds the collaborators of Run. Zero values select production
// implementations; a nil Ledger disables run recording.
type Deps struct {
	FS       fsutil.FileSystem
	Clock    timeutil.Clock
	Progress capture.ProgressReporter
	Ledger   RunRecorder
	NewRunID func() string
}

func (d *Deps) setDefaults() {
	if d.FS == nil {
		d.FS = fsutil.OSFileSystem{}
	}
	if d.Clock == nil {
		d.Clock = timeutil.RealClock{}
	}
	if d.Progress == nil {
		d.Progress = capture.NopProgress{}
	}
	if d.NewRunID == nil {
		d.NewRunID = uuid.NewString
	}
}

// Result describes a finished run.
type Result struct {
	RunID      string
	InputPath  string
	OutputPath string
	Template   capture.Stats

	// TemplateTruncated is set when the template ended with an incomplete
	// record that was discarded.
	TemplateTruncated bool

	Summary capture.Summary
	Verify  *capture.VerifyReport
}

// Run generates the stress file described by cfg.
//
// The output directory is created if missing. The template is loaded before
// the output file is created, so an empty template leaves no output behind.
// The output file is closed on every path; a failure after it was created
// leaves whatever prefix was written.
func Run(ctx context.Context, cfg *config.GeneratorConfig, deps Deps) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	deps.setDefaults()

	res := &Result{
		RunID:      deps.NewRunID(),
		InputPath:  cfg.GetInputPath(),
		OutputPath: cfg.GetOutputPath(),
	}
	target := cfg.GetTargetBytes()

	if err := fsutil.EnsureDir(deps.FS, filepath.Dir(res.OutputPath)); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	monitoring.Logf("Generating %.2f MB stress file %s from %s (run %s)",
		float64(target)/(1024*1024), res.OutputPath, res.InputPath, res.RunID)

	tmpl, err := capture.LoadTemplate(deps.FS, res.InputPath)
	if err != nil {
		return nil, err
	}
	res.Template = capture.ComputeStats(tmpl)
	res.TemplateTruncated = tmpl.Truncated()
	monitoring.Logf("Template payloads: min=%d max=%d mean=%.1f stddev=%.1f bytes; %d bytes per sweep",
		res.Template.MinPayload, res.Template.MaxPayload, res.Template.MeanPayload,
		res.Template.StdDevPayload, tmpl.SweepBytes())

	summary, err := writeOutput(ctx, deps, res, tmpl, target)
	res.Summary = summary
	if err != nil {
		return res, err
	}

	verified := false
	if cfg.GetVerify() {
		if err := verifyOutput(deps.FS, res); err != nil {
			return res, err
		}
		verified = true
	}

	if deps.Ledger != nil {
		err := deps.Ledger.RecordRun(db.Run{
			RunID:           res.RunID,
			InputPath:       res.InputPath,
			OutputPath:      res.OutputPath,
			TemplateRecords: res.Template.Records,
			TargetBytes:     target,
			BytesWritten:    summary.BytesWritten,
			RecordsWritten:  summary.RecordsWritten,
			Sweeps:          summary.Sweeps,
			StartTime:       summary.StartTime,
			Duration:        summary.Duration,
			Verified:        verified,
		})
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func writeOutput(ctx context.Context, deps Deps, res *Result, tmpl *capture.Template, target int64) (capture.Summary, error) {
	out, err := deps.FS.Create(res.OutputPath)
	if err != nil {
		return capture.Summary{}, fmt.Errorf("failed to create output %s: %w", res.OutputPath, err)
	}

	summary, err := capture.Replicate(ctx, out, tmpl, capture.ReplicateOptions{
		TargetBytes: target,
		Clock:       deps.Clock,
		Progress:    deps.Progress,
		RunID:       res.RunID,
	})
	if cerr := out.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close output %s: %w", res.OutputPath, cerr)
	}
	if err != nil {
		return summary, fmt.Errorf("failed to generate %s: %w", res.OutputPath, err)
	}
	return summary, nil
}

func verifyOutput(fsys fsutil.FileSystem, res *Result) error {
	report, err := capture.VerifyFile(fsys, res.OutputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	res.Verify = report

	switch {
	case report.Records != res.Summary.RecordsWritten:
		return fmt.Errorf("%w: read %d records, wrote %d", ErrVerificationFailed, report.Records, res.Summary.RecordsWritten)
	case report.FileBytes() != res.Summary.BytesWritten:
		return fmt.Errorf("%w: read %d bytes, wrote %d", ErrVerificationFailed, report.FileBytes(), res.Summary.BytesWritten)
	case !report.Monotonic():
		return fmt.Errorf("%w: %d timestamp regressions", ErrVerificationFailed, report.Regressions)
	}

	monitoring.Logf("Verified %s: %d records, timestamps %s to %s",
		res.OutputPath, report.Records, report.FirstTimestamp.UTC().Format("15:04:05.000000"),
		report.LastTimestamp.UTC().Format("15:04:05.000000"))
	return nil
}
