package sph

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Range is a half-open index interval [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Start }

// Partition splits [0, n) into at most workers contiguous ranges whose sizes
// differ by at most one. Empty ranges are omitted.
func Partition(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	base, rem := n/workers, n%workers
	out := make([]Range, 0, workers)
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < rem {
			size++
		}
		out = append(out, Range{Start: start, End: start + size})
		start += size
	}
	return out
}

// ChunkFunc processes indices [start, end) on the given worker slot.
type ChunkFunc func(worker, start, end int) error

// workChunk represents a range of particles for a worker to process.
type workChunk struct {
	worker     int
	start, end int
	fn         ChunkFunc
}

// Pool is a fixed set of persistent worker goroutines. Run blocks until every
// dispatched chunk has finished, which makes each call a stage barrier.
type Pool struct {
	numWorkers int

	workChan chan workChunk // sends work to workers
	doneChan chan error     // workers report completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
	mu       sync.Mutex // serializes Run and Close
}

// NewPool creates a pool with the given worker count (<= 0 means GOMAXPROCS).
// Workers start lazily on the first Run.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{numWorkers: workers}
}

// Workers returns the worker count.
func (p *Pool) Workers() int { return p.numWorkers }

// startWorkers launches persistent worker goroutines.
func (p *Pool) startWorkers() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan error, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.doneChan <- runChunk(chunk)
		}
	}
}

func runChunk(c workChunk) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d [%d,%d): panic: %v", c.worker, c.start, c.end, r)
		}
	}()
	return c.fn(c.worker, c.start, c.end)
}

// Run partitions [0, n) across the workers, runs fn on every chunk and waits
// for all of them. Errors from individual chunks are joined.
func (p *Pool) Run(n int, fn ChunkFunc) error {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ranges := Partition(n, p.numWorkers)

	// A single chunk runs inline.
	if len(ranges) == 1 {
		return runChunk(workChunk{worker: 0, start: 0, end: n, fn: fn})
	}

	p.startWorkers()
	for w, r := range ranges {
		p.workChan <- workChunk{worker: w, start: r.Start, end: r.End, fn: fn}
	}

	var errs []error
	for range ranges {
		if err := <-p.doneChan; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close signals all workers to exit and waits for them.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}
