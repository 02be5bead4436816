// Package parallel runs independent per-frame jobs on a bounded pool of
// goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// WorkerCount determines the number of workers for a job count, scaling
// with the available CPUs and never exceeding the job count.
func WorkerCount(jobs int) int {
	if jobs <= 0 {
		return 0
	}

	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if jobs < 100 {
		return max(1, min(numCPU/2, jobs))
	}

	// For medium workloads, use most CPUs
	if jobs < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}

// ForEach calls fn(worker, i) for every i in [0, n). worker identifies the
// goroutine in [0, WorkerCount(n)) so callers can keep one scratch buffer
// per worker. fn must only write state owned by index i or by its worker.
func ForEach(n int, fn func(worker, i int)) {
	workers := WorkerCount(n)
	if workers == 0 {
		return
	}
	if workers == 1 {
		for i := range n {
			fn(0, i)
		}
		return
	}

	jobs := make(chan int, n)
	for i := range n {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range jobs {
				fn(worker, i)
			}
		}(w)
	}
	wg.Wait()
}

// Map runs fn for every i in [0, n) and collects the results in order.
func Map[T any](n int, fn func(i int) T) []T {
	out := make([]T, max(n, 0))
	ForEach(n, func(_, i int) {
		out[i] = fn(i)
	})
	return out
}
