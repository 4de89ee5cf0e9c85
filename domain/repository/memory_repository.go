package repository

import (
	"context"
	"sync"

	"github.com/pyama86/YAIR/domain/entity"
)

// MemoryRepository はプロセスメモリ上の対応表。再起動で消える。
// ginは並行にリクエストを捌くのでミューテックスで直列化する。
type MemoryRepository struct {
	mu           sync.Mutex
	correlations map[string]*entity.Correlation
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		correlations: map[string]*entity.Correlation{},
	}
}

func (r *MemoryRepository) FindCorrelation(_ context.Context, monitorID string) (*entity.Correlation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.correlations[monitorID]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, nil
}

func (r *MemoryRepository) SaveCorrelation(_ context.Context, c *entity.Correlation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.correlations[c.MonitorID] = &copied
	return nil
}

func (r *MemoryRepository) DeleteCorrelation(_ context.Context, monitorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.correlations, monitorID)
	return nil
}
