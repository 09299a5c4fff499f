package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// Store is a directory-backed write-once ArtifactStore for local and CI
// runner use. O_EXCL enforces the write-once contract.
type Store struct {
	dir string
}

var _ interfaces.ArtifactStore = (*Store)(nil)

// NewStore creates the artifact directory if needed
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create artifact directory", goerr.V("dir", dir))
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Store(_ context.Context, name string, data []byte) error {
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return goerr.Wrap(types.ErrStoreFailure, "artifact name already written", goerr.V("name", name))
		}
		return goerr.Wrap(types.ErrStoreFailure, "failed to create artifact file",
			goerr.V("name", name), goerr.V("error", err.Error()))
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return goerr.Wrap(types.ErrStoreFailure, "failed to write artifact file",
			goerr.V("name", name), goerr.V("error", err.Error()))
	}
	return nil
}

func (s *Store) Retrieve(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.New("artifact not found", goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to read artifact file", goerr.V("name", name))
	}
	return data, nil
}
