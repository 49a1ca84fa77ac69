package shared

import "github.com/sourcegraph/conc"

// WatchBatchSize bounds how many per-user lookups run at once
const WatchBatchSize = 5

// ForEachBatch calls fn for every item, size items at a time. Calls inside a
// batch run concurrently; the next batch starts only after the whole previous
// batch returned. fn must be safe for concurrent use.
func ForEachBatch[T any](items []T, size int, fn func(T)) {
	if size <= 0 {
		size = 1
	}
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		var wg conc.WaitGroup
		for _, item := range items[start:end] {
			wg.Go(func() { fn(item) })
		}
		wg.Wait()
	}
}
