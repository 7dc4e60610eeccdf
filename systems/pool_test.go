package systems

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_CoversEveryIndexOnce(t *testing.T) {
	for _, n := range []int{0, 1, 10, parallelThreshold, 1000, 1001} {
		pool := NewPool(4)
		hits := make([]int32, n)
		pool.Run(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		pool.Stop()

		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}

func TestPool_PanicIsReraised(t *testing.T) {
	pool := NewPool(4)
	defer pool.Stop()

	assert.PanicsWithValue(t, "boom", func() {
		pool.Run(1000, func(start, end int) {
			if start == 0 {
				panic("boom")
			}
		})
	})

	// The pool keeps working after a panic.
	var total atomic.Int64
	pool.Run(1000, func(start, end int) {
		total.Add(int64(end - start))
	})
	assert.Equal(t, int64(1000), total.Load())
}

func TestPool_ConcurrentRuns(t *testing.T) {
	pool := NewPool(3)
	defer pool.Stop()

	var wg sync.WaitGroup
	sums := make([]int64, 4)
	for r := range sums {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var sum atomic.Int64
			pool.Run(5000, func(start, end int) {
				for i := start; i < end; i++ {
					sum.Add(int64(i))
				}
			})
			sums[r] = sum.Load()
		}()
	}
	wg.Wait()

	for _, s := range sums {
		assert.Equal(t, int64(5000*4999/2), s)
	}
}

func TestPool_StopRestart(t *testing.T) {
	pool := NewPool(2)
	pool.Stop() // not running yet

	var count atomic.Int64
	pool.Run(200, func(start, end int) { count.Add(int64(end - start)) })
	pool.Stop()
	pool.Run(200, func(start, end int) { count.Add(int64(end - start)) })
	pool.Stop()

	assert.Equal(t, int64(400), count.Load())
}
