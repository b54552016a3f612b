package update

import "runtime"

// DefaultChunkSize is the number of items processed between yields.
const DefaultChunkSize = 500

// YieldFunc hands control back to the scheduler between chunks.
type YieldFunc func()

// ForEachChunk calls fn for every item in order, size items at a time, and
// calls yield after each chunk. It returns the number of chunks processed,
// which is also the number of yields. A size below 1 uses DefaultChunkSize
// and a nil yield uses runtime.Gosched.
func ForEachChunk[T any](items []T, size int, yield YieldFunc, fn func(T)) int {
	if size < 1 {
		size = DefaultChunkSize
	}
	if yield == nil {
		yield = runtime.Gosched
	}
	chunks := 0
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		for _, item := range items[start:end] {
			fn(item)
		}
		chunks++
		yield()
	}
	return chunks
}
