// Command gen-stress multiplies a small template capture into a large
// stress-test capture with synthetic, steadily increasing timestamps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/capture"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/config"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/db"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/fsutil"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/stress"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/timeutil"
	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/version"
)

type options struct {
	configPath  string
	inputPath   string
	outputPath  string
	sizeMB      float64
	sizeBytes   int64
	verify      bool
	dbPath      string
	history     int
	quiet       bool
	showVersion bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Optional JSON config file (flags override its values)")
	fs.StringVar(&o.inputPath, "input", config.DefaultInputPath, "Template capture to replicate")
	fs.StringVar(&o.outputPath, "output", config.DefaultOutputPath, "Generated stress capture")
	fs.Float64Var(&o.sizeMB, "size-mb", config.DefaultTargetSizeMB, "Target output size in MB (1MB = 1048576 bytes)")
	fs.Int64Var(&o.sizeBytes, "size-bytes", 0, "Exact target output size in bytes (overrides -size-mb)")
	fs.BoolVar(&o.verify, "verify", false, "Read the output back and check record count and timestamps")
	fs.StringVar(&o.dbPath, "db", "", "SQLite run ledger path (optional)")
	fs.IntVar(&o.history, "history", 0, "Print the N most recent runs from -db and exit")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress the progress line")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage: %s [options]\n\n", fs.Name())
		fmt.Fprintf(out, "Replicates the records of a small PCAP template into a large stress-test\n")
		fmt.Fprintf(out, "capture, stamping one microsecond per record.\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  %s -input data/Multiple.Packets.pcap -output data/StressTest.pcap -size-mb 500\n", fs.Name())
		fmt.Fprintf(out, "  %s -config stress.json -verify -db runs.db\n", fs.Name())
	}
	return o
}

// flagOverrides returns a config holding only the flags set on the command line.
func flagOverrides(fs *flag.FlagSet, o *options) *config.GeneratorConfig {
	cfg := &config.GeneratorConfig{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = &o.inputPath
		case "output":
			cfg.OutputPath = &o.outputPath
		case "size-mb":
			cfg.TargetSizeMB = &o.sizeMB
		case "size-bytes":
			cfg.TargetBytes = &o.sizeBytes
		case "verify":
			cfg.Verify = &o.verify
		case "db":
			cfg.DBPath = &o.dbPath
		}
	})
	return cfg
}

// buildConfig layers defaults, the optional config file and explicit flags.
func buildConfig(fsys fsutil.FileSystem, fs *flag.FlagSet, o *options) (*config.GeneratorConfig, error) {
	cfg := config.DefaultGeneratorConfig()
	if o.configPath != "" {
		fileCfg, err := config.LoadGeneratorConfig(fsys, o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	cfg = cfg.Merge(flagOverrides(fs, o))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printHistory(w io.Writer, runs []db.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tOUTPUT\tRECORDS\tBYTES\tDURATION\tVERIFIED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%v\t%t\n",
			r.RunID, r.OutputPath, r.RecordsWritten, r.BytesWritten, r.Duration.Round(time.Millisecond), r.Verified)
	}
	tw.Flush()
}

func run(args []string) error {
	fs := flag.NewFlagSet("gen-stress", flag.ExitOnError)
	o := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if o.showVersion {
		fmt.Printf("gen-stress %s\n", version.String())
		return nil
	}

	fsys := fsutil.OSFileSystem{}
	cfg, err := buildConfig(fsys, fs, o)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	var ledger *db.DB
	if path := cfg.GetDBPath(); path != "" {
		ledger, err = db.NewDB(path)
		if err != nil {
			return fmt.Errorf("failed to open run ledger: %w", err)
		}
		defer ledger.Close()
	}

	if o.history > 0 {
		if ledger == nil {
			return errors.New("-history requires -db")
		}
		runs, err := ledger.RecentRuns(o.history)
		if err != nil {
			return err
		}
		printHistory(os.Stdout, runs)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timeutil.RealClock{}
	deps := stress.Deps{FS: fsys, Clock: clock}
	if !o.quiet {
		deps.Progress = capture.NewConsoleProgress(os.Stdout, clock, cfg.GetProgressInterval())
	}
	if ledger != nil {
		deps.Ledger = ledger
	}

	res, err := stress.Run(ctx, cfg, deps)
	if err != nil {
		if errors.Is(err, capture.ErrEmptyTemplate) {
			return fmt.Errorf("no packets found in %s: %w", cfg.GetInputPath(), err)
		}
		return err
	}

	fmt.Printf("\nSUCCESS: Generated %s\n", res.OutputPath)
	fmt.Printf("Run %s: %d records, %d bytes, %d sweeps in %v\n",
		res.RunID, res.Summary.RecordsWritten, res.Summary.BytesWritten, res.Summary.Sweeps,
		res.Summary.Duration.Round(time.Millisecond))
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("gen-stress: %v", err)
	}
}
