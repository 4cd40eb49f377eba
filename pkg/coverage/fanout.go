package coverage

import (
	"sync"

	"github.com/seqwell/covcal/pkg/bamio"
	"github.com/seqwell/covcal/pkg/region"
	"github.com/seqwell/covcal/pkg/sysinfo"
)

// ForRegions computes coverage for many regions in parallel. Each worker
// opens its own BAM handle since indexed readers are not goroutine-safe.
// Results are returned in input order. workers <= 0 picks a default from
// the machine's core count.
func ForRegions(path string, regions []region.Region, minMapQ byte, flank int, maxDepth uint32, workers int) ([]*RegionCoverage, error) {
	if workers <= 0 {
		workers = sysinfo.Workers()
	}
	if workers > len(regions) {
		workers = len(regions)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]*RegionCoverage, len(regions))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src, err := bamio.Open(path, 1)
			if err != nil {
				setErr(err)
				for range jobs {
					// drain so the feeder does not block
				}
				return
			}
			defer src.Close()
			for i := range jobs {
				cov, err := ForRegion(src, regions[i], minMapQ, flank, maxDepth)
				if err != nil {
					setErr(err)
					continue
				}
				results[i] = cov
			}
		}()
	}

	for i := range regions {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
