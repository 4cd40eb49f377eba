package bamio

import (
	"github.com/biogo/hts/sam"
)

// MockSource is an in-memory RecordSource backed by a record slice. Fetch
// filters by reference overlap the way an indexed reader would. It exists
// so engine logic can be exercised without BAM fixtures.
type MockSource struct {
	header  *sam.Header
	records []*sam.Record
}

func NewMockSource(h *sam.Header, records []*sam.Record) *MockSource {
	return &MockSource{header: h, records: records}
}

func (m *MockSource) Header() *sam.Header { return m.header }

func (m *MockSource) Fetch(contig string, beg, end int) (RecordIterator, error) {
	var out []*sam.Record
	for _, rec := range m.records {
		if rec.Ref == nil || rec.Ref.Name() != contig {
			continue
		}
		if rec.Start() < end && rec.End() > beg {
			out = append(out, rec)
		}
	}
	return &sliceIterator{records: out}, nil
}

func (m *MockSource) FetchAll() (RecordIterator, error) {
	return &sliceIterator{records: m.records}, nil
}

type sliceIterator struct {
	records []*sam.Record
	i       int
	rec     *sam.Record
}

func (it *sliceIterator) Next() bool {
	if it.i >= len(it.records) {
		return false
	}
	it.rec = it.records[it.i]
	it.i++
	return true
}

func (it *sliceIterator) Record() *sam.Record { return it.rec }
func (it *sliceIterator) Error() error        { return nil }
func (it *sliceIterator) Close() error        { return nil }

// Collect is a RecordWriter that captures everything written to it.
type Collect struct {
	Records []*sam.Record
}

func (c *Collect) Write(rec *sam.Record) error {
	c.Records = append(c.Records, rec)
	return nil
}

// Names returns the distinct query names written, in first-seen order.
func (c *Collect) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, rec := range c.Records {
		if !seen[rec.Name] {
			seen[rec.Name] = true
			names = append(names, rec.Name)
		}
	}
	return names
}
