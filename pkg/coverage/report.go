package coverage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Report writes a CSV table of per-region depth statistics. Each threshold
// adds a pct_gt_<t> column with the fraction of positions above it. Empty
// regions report zeros.
func Report(w io.Writer, coverages []*RegionCoverage, thresholds []uint32) error {
	cw := csv.NewWriter(w)

	header := []string{"name", "chrom", "beg", "end", "min", "max", "mean", "std", "cv"}
	for _, t := range thresholds {
		header = append(header, fmt.Sprintf("pct_gt_%d", t))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, c := range coverages {
		row := []string{
			c.Region.Name,
			c.Region.Contig,
			strconv.Itoa(c.Region.Beg),
			strconv.Itoa(c.Region.End),
			strconv.FormatUint(uint64(uintOrZero(c.Min())), 10),
			strconv.FormatUint(uint64(uintOrZero(c.Max())), 10),
			fmt.Sprintf("%.2f", floatOrZero(c.Mean())),
			fmt.Sprintf("%.2f", floatOrZero(c.Std())),
			fmt.Sprintf("%.2f", floatOrZero(c.CV())),
		}
		for _, t := range thresholds {
			row = append(row, fmt.Sprintf("%.2f", floatOrZero(c.PercentAboveThreshold(t))))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func uintOrZero(v *uint32) uint32 {
	if v == nil {
		return 0
	}
	return *v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
