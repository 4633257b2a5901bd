package rigid

import (
	"sync"

	"github.com/samber/lo"
)

// task runs fn over data split in contiguous chunks, one goroutine per chunk.
// fn must only touch the element it is given.
func task[T any](workersCount int, data []T, fn func(data T)) {
	workersCount = max(DEFAULT_WORKERS, workersCount)
	if workersCount == 1 || len(data) < 2 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	dataSize := len(data)
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for start := 0; start < dataSize; start += chunkSize {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(start, min(start+chunkSize, dataSize))
	}
	wg.Wait()
}

// gather is task for functions producing a result: out[i] = fn(i, data[i]), in order.
func gather[T, R any](workersCount int, data []T, fn func(i int, data T) R) []R {
	out := make([]R, len(data))
	task(workersCount, lo.Range(len(data)), func(i int) {
		out[i] = fn(i, data[i])
	})

	return out
}
