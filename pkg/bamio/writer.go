package bamio

import (
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// Writer writes BAM records to an underlying stream.
type Writer struct {
	b *bam.Writer
	c io.Closer
}

// NewWriter writes BAM to w with the given header. threads controls BGZF
// compression parallelism.
func NewWriter(w io.Writer, h *sam.Header, threads int) (*Writer, error) {
	bw, err := bam.NewWriter(w, h, threads)
	if err != nil {
		return nil, errors.Wrap(err, "creating BAM writer")
	}
	return &Writer{b: bw}, nil
}

// Create writes BAM to a new file at path.
func Create(path string, h *sam.Header, threads int) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	bw, err := bam.NewWriter(f, h, threads)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "creating BAM writer for %s", path)
	}
	return &Writer{b: bw, c: f}, nil
}

func (w *Writer) Write(rec *sam.Record) error {
	return w.b.Write(rec)
}

// Close flushes the BGZF stream and closes the file if Create opened one.
func (w *Writer) Close() error {
	err := w.b.Close()
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
