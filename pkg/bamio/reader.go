// Package bamio provides indexed and streaming access to coordinate-sorted
// BAM files, plus the small interfaces the rest of the tool is written
// against.
package bamio

import (
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// RecordIterator yields alignment records one at a time.
type RecordIterator interface {
	Next() bool
	Record() *sam.Record
	Error() error
	Close() error
}

// RecordSource serves alignment records either for a genomic interval
// (via the index) or as a full linear scan.
type RecordSource interface {
	Header() *sam.Header
	Fetch(contig string, beg, end int) (RecordIterator, error)
	FetchAll() (RecordIterator, error)
}

// RecordWriter consumes alignment records.
type RecordWriter interface {
	Write(*sam.Record) error
}

// IndexedFile is a BAM file with its .bai index loaded. It is not safe for
// concurrent use; open one handle per goroutine.
type IndexedFile struct {
	path    string
	threads int
	f       *os.File
	b       *bam.Reader
	idx     *bam.Index
	refs    map[string]*sam.Reference
}

// Open opens a coordinate-sorted BAM file and its index. The index is
// looked up at path+".bai" first, then with the .bam suffix replaced.
func Open(path string, threads int) (*IndexedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening BAM %s", path)
	}
	b, err := bam.NewReader(f, threads)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading BAM header of %s", path)
	}
	idx, err := openIndex(path)
	if err != nil {
		b.Close()
		f.Close()
		return nil, err
	}
	refs := make(map[string]*sam.Reference)
	for _, ref := range b.Header().Refs() {
		refs[ref.Name()] = ref
	}
	return &IndexedFile{
		path:    path,
		threads: threads,
		f:       f,
		b:       b,
		idx:     idx,
		refs:    refs,
	}, nil
}

func openIndex(path string) (*bam.Index, error) {
	idxPath := path + ".bai"
	fi, err := os.Open(idxPath)
	if err != nil {
		alt := strings.TrimSuffix(path, ".bam") + ".bai"
		fi, err = os.Open(alt)
		if err != nil {
			return nil, errors.Errorf("no index found for %s (tried %s and %s)", path, idxPath, alt)
		}
	}
	defer fi.Close()
	idx, err := bam.ReadIndex(fi)
	if err != nil {
		return nil, errors.Wrapf(err, "reading index for %s", path)
	}
	return idx, nil
}

// Header returns the BAM header.
func (x *IndexedFile) Header() *sam.Header {
	return x.b.Header()
}

// Fetch returns an iterator over records overlapping contig:beg-end.
func (x *IndexedFile) Fetch(contig string, beg, end int) (RecordIterator, error) {
	ref, ok := x.refs[contig]
	if !ok {
		return nil, errors.Errorf("contig %s not found in BAM header of %s", contig, x.path)
	}
	chunks, err := x.idx.Chunks(ref, beg, end)
	if err != nil {
		// The index reports an invalid interval when the reference
		// carries no aligned data; serve that as an empty fetch.
		return emptyIterator{}, nil
	}
	it, err := bam.NewIterator(x.b, chunks)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s:%d-%d from %s", contig, beg, end, x.path)
	}
	return it, nil
}

// FetchAll returns an iterator over every record in the file, in file
// order, using a fresh handle so indexed fetches are not disturbed.
func (x *IndexedFile) FetchAll() (RecordIterator, error) {
	f, err := os.Open(x.path)
	if err != nil {
		return nil, errors.Wrapf(err, "reopening BAM %s", x.path)
	}
	b, err := bam.NewReader(f, x.threads)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "reading BAM header of %s", x.path)
	}
	return &streamIterator{f: f, b: b}, nil
}

// Close releases the file handle.
func (x *IndexedFile) Close() error {
	if err := x.b.Close(); err != nil {
		x.f.Close()
		return err
	}
	return x.f.Close()
}

// streamIterator adapts a linear bam.Reader to RecordIterator.
type streamIterator struct {
	f   *os.File
	b   *bam.Reader
	rec *sam.Record
	err error
}

func (it *streamIterator) Next() bool {
	if it.err != nil {
		return false
	}
	rec, err := it.b.Read()
	if err != nil {
		if err != io.EOF {
			it.err = err
		}
		return false
	}
	it.rec = rec
	return true
}

func (it *streamIterator) Record() *sam.Record { return it.rec }

func (it *streamIterator) Error() error { return it.err }

func (it *streamIterator) Close() error {
	if err := it.b.Close(); err != nil {
		it.f.Close()
		return err
	}
	return it.f.Close()
}

type emptyIterator struct{}

func (emptyIterator) Next() bool          { return false }
func (emptyIterator) Record() *sam.Record { return nil }
func (emptyIterator) Error() error        { return nil }
func (emptyIterator) Close() error        { return nil }
