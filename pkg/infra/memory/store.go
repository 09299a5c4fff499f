package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// Store is an in-memory write-once ArtifactStore
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewStore creates an empty in-memory artifact store
func NewStore() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

var _ interfaces.ArtifactStore = (*Store)(nil)

func (s *Store) Store(_ context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[name]; ok {
		return goerr.Wrap(types.ErrStoreFailure, "artifact name already written", goerr.V("name", name))
	}
	s.objects[name] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Retrieve(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[name]
	if !ok {
		return nil, goerr.New("artifact not found", goerr.V("name", name))
	}
	return append([]byte(nil), data...), nil
}
