package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/calibrate"
	"github.com/seqwell/covcal/pkg/coverage"
	"github.com/seqwell/covcal/pkg/region"
	"github.com/seqwell/covcal/pkg/storage"
	"github.com/seqwell/covcal/pkg/sysinfo"
)

var (
	calibrateBED        string
	sampleBED           string
	foldCoverage        float64
	calibrateFlank      int
	seed                uint64
	windowSize          int
	calibrateMinMapQ    uint8
	excludeUncalibrated bool
	useProfile          bool
	summaryReport       string
	outputPath          string
	calibrateThreads    int
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <input.bam>",
	Short: "Downsample reads in control regions to a target coverage",
	Long: `Calibrate downsamples read pairs inside the regions named in the BED
file so each region's mean coverage matches a target, and writes a new BAM.
Reads whose mates map outside the calibrated contigs pass through untouched
unless -x is given. Output order follows input order, so a sorted input
yields a sorted output.

The target is chosen one of three ways:
  default            a fixed fold coverage (--fold-coverage)
  --sample-bed       the mean coverage of the same-named sample region
  --profile          the windowed read-start profile of the sample region,
                     mirrored (requires --sample-bed)

Selection is deterministic for a given --seed.

Examples:
  # Flatten control regions to 40x
  covcal calibrate -b controls.bed -o calibrated.bam input.bam

  # Match each control region to its sample counterpart
  covcal calibrate -b controls.bed -S sample.bed -o calibrated.bam input.bam

  # Profile-matched calibration with a summary report
  covcal calibrate -b controls.bed -S sample.bed --profile \
    -o calibrated.bam input.bam`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalibrate(cmd.Context(), args[0])
	},
}

func init() {
	f := calibrateCmd.Flags()
	f.StringVarP(&calibrateBED, "bed", "b", "", "BED file of regions to calibrate (required)")
	f.StringVarP(&sampleBED, "sample-bed", "S", "", "BED file of sample regions matched to calibration regions by name")
	f.Float64VarP(&foldCoverage, "fold-coverage", "f", 40, "target fold coverage when no sample BED is given")
	f.IntVar(&calibrateFlank, "flank", 500, "positions trimmed from each region end before computing coverage")
	f.Uint64VarP(&seed, "seed", "s", 5678, "random seed for reproducible downsampling")
	f.IntVarP(&windowSize, "window-size", "w", 100, "window size for --profile calibration")
	f.Uint8VarP(&calibrateMinMapQ, "min-MQ", "q", 10, "minimum mapping quality for profile and summary coverage")
	f.BoolVarP(&excludeUncalibrated, "exclude-uncalibrated-reads", "x", false, "drop reads whose mate maps outside the calibrated contigs")
	f.BoolVar(&useProfile, "profile", false, "match the sample region's windowed coverage profile (requires --sample-bed)")
	f.StringVar(&summaryReport, "summary-report", "", "write a per-region coverage summary CSV to this path")
	f.StringVarP(&outputPath, "output", "o", "", "output BAM path (default stdout)")
	f.IntVarP(&calibrateThreads, "threads", "t", 0, "BAM compression threads (0 = physical cores)")
	calibrateCmd.MarkFlagRequired("bed")
}

func runCalibrate(ctx context.Context, bamPath string) error {
	if calibrateThreads <= 0 {
		calibrateThreads = sysinfo.Workers()
	}
	if useProfile && sampleBED == "" {
		return fmt.Errorf("--profile requires --sample-bed")
	}
	if useProfile && summaryReport != "" {
		return fmt.Errorf("--summary-report is not supported with --profile")
	}
	if summaryReport != "" {
		store, err := storage.For(ctx, summaryReport)
		if err != nil {
			return err
		}
		exists, err := store.Exists(summaryReport)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("summary report %s already exists; refusing to overwrite", summaryReport)
		}
	}

	regions, err := region.Load(ctx, calibrateBED)
	if err != nil {
		return err
	}
	var sampleRegions []region.Region
	if sampleBED != "" {
		sampleRegions, err = region.Load(ctx, sampleBED)
		if err != nil {
			return err
		}
	}

	src, err := bamio.Open(bamPath, calibrateThreads)
	if err != nil {
		return err
	}
	defer src.Close()

	// Pick the mode and the final shape of the target regions. The fixed
	// path trims flanks up front; the sample paths use the regions as
	// given (profile trims internally).
	targets := regions
	trackerFlank := calibrateFlank
	var mode calibrate.Mode
	switch {
	case useProfile:
		mode = calibrate.SampleProfile{
			SampleRegions: sampleRegions,
			Flank:         calibrateFlank,
			WindowSize:    windowSize,
			MinMapQ:       calibrateMinMapQ,
			Seed:          seed,
		}
	case sampleBED != "":
		trackerFlank = 0
		mode = calibrate.SampleMeanCoverage{SampleRegions: sampleRegions, Seed: seed}
	default:
		targets = make([]region.Region, len(regions))
		for i, reg := range regions {
			targets[i], err = reg.Trim(calibrateFlank)
			if err != nil {
				return err
			}
		}
		trackerFlank = 0
		mode = calibrate.FixedCoverage{FoldCoverage: foldCoverage, Seed: seed}
	}

	var w *bamio.Writer
	if outputPath != "" {
		w, err = bamio.Create(outputPath, src.Header(), calibrateThreads)
	} else {
		w, err = bamio.NewWriter(os.Stdout, src.Header(), calibrateThreads)
	}
	if err != nil {
		return err
	}

	var writer bamio.RecordWriter = w
	var tracker *coverage.Tracker
	if summaryReport != "" {
		tracker, err = coverage.NewTracker(targets, trackerFlank, calibrateMinMapQ)
		if err != nil {
			return err
		}
		writer = coverage.TrackingWriter{W: w, T: tracker}
	}

	results, err := calibrate.Calibrate(src, writer, targets, mode, excludeUncalibrated)
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if summaryReport != "" {
		var buf bytes.Buffer
		if err := calibrate.WriteSummary(&buf, results, tracker.Mean); err != nil {
			return err
		}
		store, err := storage.For(ctx, summaryReport)
		if err != nil {
			return err
		}
		if err := store.WriteFile(summaryReport, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}
