package region

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/seqwell/covcal/pkg/storage"
)

// Region is a named half-open interval on a reference contig.
// Coordinates are 0-based, BED style: Beg inclusive, End exclusive.
type Region struct {
	Contig string
	Beg    int
	End    int
	Name   string
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Contig, r.Beg, r.End)
}

// Len returns the number of reference positions the region spans.
func (r Region) Len() int {
	return r.End - r.Beg
}

// Trim returns the region with flank positions removed from both ends.
// A trim that leaves no interior is an error rather than a silent clamp.
func (r Region) Trim(flank int) (Region, error) {
	if flank < 0 {
		return Region{}, errors.Errorf("negative flank %d for region %s", flank, r)
	}
	beg := r.Beg + flank
	end := r.End - flank
	if beg < r.Beg {
		return Region{}, errors.Errorf("region start + flank overflowed for region %s", r)
	}
	if beg >= end {
		return Region{}, errors.Errorf("region start >= end after applying flank %d for region %s", flank, r)
	}
	t := r
	t.Beg = beg
	t.End = end
	return t, nil
}

// FromBED parses a whitespace-delimited region list. Each non-empty line
// must have at least four columns: contig, begin, end, name. Extra columns
// are ignored. Blank lines are skipped.
func FromBED(r io.Reader) ([]Region, error) {
	var regions []Region
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 4 {
			return nil, errors.Errorf("incorrect number of columns, expected >= 4 found %d (line = %d)", len(fields), lineNo)
		}
		beg, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, errors.Errorf("beg column is not an integer: is %s (line = %d)", fields[1], lineNo)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, errors.Errorf("end column is not an integer: is %s (line = %d)", fields[2], lineNo)
		}
		regions = append(regions, Region{
			Contig: fields[0],
			Beg:    beg,
			End:    end,
			Name:   fields[3],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading region list")
	}
	return regions, nil
}

// Load reads a region list from a local path or an s3:// URL,
// transparently decompressing .gz and .zst inputs.
func Load(ctx context.Context, path string) ([]Region, error) {
	store, err := storage.For(ctx, path)
	if err != nil {
		return nil, err
	}
	data, err := store.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading region list %s", path)
	}
	rd, err := storage.Decompress(path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	regions, err := FromBED(rd)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing region list %s", path)
	}
	return regions, nil
}

// Contigs returns the set of contig names the regions touch.
func Contigs(regions []Region) map[string]bool {
	set := make(map[string]bool, len(regions))
	for _, r := range regions {
		set[r.Contig] = true
	}
	return set
}

// ByName indexes regions by their name column. Duplicate names are an
// error since downstream matching of sample to target regions is by name.
func ByName(regions []Region) (map[string]Region, error) {
	byName := make(map[string]Region, len(regions))
	for _, r := range regions {
		if _, ok := byName[r.Name]; ok {
			return nil, errors.Errorf("duplicate region name %s", r.Name)
		}
		byName[r.Name] = r
	}
	return byName, nil
}
