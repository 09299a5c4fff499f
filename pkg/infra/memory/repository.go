package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
)

// Repository is an in-memory RunRepository
type Repository struct {
	mu      sync.Mutex
	records []*model.RunRecord
}

// NewRepository creates an empty in-memory run repository
func NewRepository() *Repository {
	return &Repository{}
}

var _ interfaces.RunRepository = (*Repository)(nil)

func (r *Repository) Put(_ context.Context, record *model.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.records = append(r.records, &copied)
	return nil
}

func (r *Repository) List(_ context.Context, limit int) ([]*model.RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.records)
	if limit > 0 && limit < n {
		n = limit
	}

	// Most recent first
	out := make([]*model.RunRecord, 0, n)
	for i := len(r.records) - 1; i >= 0 && len(out) < n; i-- {
		copied := *r.records[i]
		out = append(out, &copied)
	}
	return out, nil
}
