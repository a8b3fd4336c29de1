// Package sysmem is the loader's pre-flight memory check. The padrón load
// must stay inside a ~4 GB budget on the boxes it runs on, so the batch size
// is picked once from available system memory before ingestion starts.
package sysmem

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/pbnjay/memory"
)

const (
	// DefaultBatchSize is the rows-per-INSERT batch on a healthy box.
	// 15 columns × 2,000 rows stays under SQLite's bound-variable limit.
	DefaultBatchSize = 2_000

	// ReducedBatchSize is used when available memory is below LowMemoryBytes.
	ReducedBatchSize = 500

	// LowMemoryBytes is the available-memory floor for the default batch size.
	LowMemoryBytes = 2 << 30 // 2 GB

	// GCHintInterval is how often (in batches) the loader yields and forces
	// a memory-reclamation pass during very long runs.
	GCHintInterval = 50
)

// Available returns the OS estimate of available memory in bytes.
func Available() uint64 {
	return memory.FreeMemory()
}

// Total returns total system memory in bytes.
func Total() uint64 {
	return memory.TotalMemory()
}

// GB converts bytes to gigabytes.
func GB(bytes uint64) float64 {
	return float64(bytes) / (1 << 30)
}

// BatchSizeFor maps an available-memory reading to a batch size. This is a
// one-shot decision; batch size is not re-adjusted mid-run.
func BatchSizeFor(availableBytes uint64) int {
	if availableBytes < LowMemoryBytes {
		return ReducedBatchSize
	}
	return DefaultBatchSize
}

// PickBatchSize queries the OS and returns the batch size to use for this
// run along with the available-memory reading it was based on.
func PickBatchSize() (int, uint64) {
	avail := Available()
	return BatchSizeFor(avail), avail
}

// GCHint yields briefly and forces a garbage-collection pass so resident
// memory stays bounded across multi-hour runs.
func GCHint() {
	runtime.GC()
	debug.FreeOSMemory()
	time.Sleep(10 * time.Millisecond)
}
