package sequence

import (
	"context"
	"sync"

	"github.com/rezonia/facturador/internal/model"
)

// MemoryAllocator keeps counters in process memory. Used by tests and
// the standalone CLI demo; not durable.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[model.DocumentKind]int64
}

var _ Allocator = (*MemoryAllocator)(nil)

// NewMemoryAllocator creates an empty in-memory allocator.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counters: make(map[model.DocumentKind]int64)}
}

func (a *MemoryAllocator) Next(_ context.Context, kind model.DocumentKind) (int64, error) {
	if !kind.Valid() {
		return 0, model.NewValidationError("kind", "unsupported document kind code")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[kind]++
	return a.counters[kind], nil
}

func (a *MemoryAllocator) ResetAll(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.counters {
		a.counters[k] = 0
	}
	return nil
}
