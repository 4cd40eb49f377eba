package calibrate

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteSummary writes a CSV with one row per calibrated region comparing
// the input, requested, and output mean coverage. calibratedMean reports
// the mean coverage actually written for a region name; coverage.Tracker's
// Mean method satisfies it.
func WriteSummary(w io.Writer, results []Result, calibratedMean func(name string) float64) error {
	cw := csv.NewWriter(w)

	header := []string{"name", "chrom", "start", "end", "uncalibrated_coverage", "target_coverage", "calibrated_coverage"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		row := []string{
			res.Region.Name,
			res.Region.Contig,
			strconv.Itoa(res.Region.Beg),
			strconv.Itoa(res.Region.End),
			formatCoverage(res.ObservedCoverage),
			formatCoverage(res.TargetCoverage),
			formatCoverage(calibratedMean(res.Region.Name)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCoverage(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
