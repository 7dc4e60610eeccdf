package systems

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum item count to use parallel processing.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// batch tracks the chunks of one Run call. Several stages may share the
// pool at once, so completion is counted per call rather than per pool.
type batch struct {
	wg       sync.WaitGroup
	once     sync.Once
	panicked any
}

// workChunk represents a range of items for a worker to process.
type workChunk struct {
	start, end int
	fn         func(start, end int)
	batch      *batch
}

// Pool is a fixed set of persistent worker goroutines processing index
// ranges.
type Pool struct {
	numWorkers int

	mu       sync.Mutex
	workChan chan workChunk // sends work to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// NewPool creates a pool with the given number of workers.
// workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{numWorkers: workers}
}

// Workers returns the worker count.
func (p *Pool) Workers() int { return p.numWorkers }

// start launches the workers if they are not running yet.
func (p *Pool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop signals all workers to exit and waits for them.
// The pool restarts lazily on the next Run.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case chunk := <-p.workChan:
			chunk.run()
		}
	}
}

func (c workChunk) run() {
	defer c.batch.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.batch.once.Do(func() { c.batch.panicked = r })
		}
	}()
	c.fn(c.start, c.end)
}

// Run calls fn over [0, n) split into contiguous chunks, one per worker,
// and returns when every chunk is done. A panic inside fn is re-raised on
// the calling goroutine.
func (p *Pool) Run(n int, fn func(start, end int)) {
	p.RunThreshold(n, parallelThreshold, fn)
}

// RunThreshold is Run with a custom minimum item count for going parallel.
// Coarse items such as scatter blocks use a lower threshold.
func (p *Pool) RunThreshold(n, threshold int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < threshold || p.numWorkers == 1 {
		fn(0, n)
		return
	}

	p.start()

	numWorkers := p.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	b := &batch{}
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			continue
		}
		b.wg.Add(1)
		p.workChan <- workChunk{start: start, end: end, fn: fn, batch: b}
	}

	b.wg.Wait()
	if b.panicked != nil {
		panic(b.panicked)
	}
}
