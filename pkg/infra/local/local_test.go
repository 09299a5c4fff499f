package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relgate/pkg/domain/types"
	"github.com/m-mizutani/relgate/pkg/infra/local"
)

func TestStore_WriteOnce(t *testing.T) {
	ctx := context.Background()

	store, err := local.NewStore(t.TempDir())
	gt.NoError(t, err)

	gt.NoError(t, store.Store(ctx, "2.0.0", []byte("tarball")))

	err = store.Store(ctx, "2.0.0", []byte("other"))
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, types.ErrStoreFailure)).Equal(true)

	data, err := store.Retrieve(ctx, "2.0.0")
	gt.NoError(t, err)
	gt.Value(t, data).Equal([]byte("tarball"))

	_, err = store.Retrieve(ctx, "missing")
	gt.Error(t, err)
}

type stubRemote struct {
	data map[string][]byte
}

func (s *stubRemote) GetManifest(_ context.Context, _, _, _, ref string) ([]byte, error) {
	data, ok := s.data[ref]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func TestManifestFile(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "package.json")
	gt.NoError(t, os.WriteFile(path, []byte(`{"version":"1.2.3"}`), 0644))

	remote := &stubRemote{data: map[string][]byte{
		"main": []byte(`{"version":"1.2.2"}`),
	}}
	source := local.NewManifestFile(path, "headsha", remote)

	t.Run("Head ref served from local file", func(t *testing.T) {
		data, err := source.GetManifest(ctx, "owner", "repo", "package.json", "headsha")
		gt.NoError(t, err)
		gt.Value(t, data).Equal([]byte(`{"version":"1.2.3"}`))
	})

	t.Run("Other refs delegate to remote", func(t *testing.T) {
		data, err := source.GetManifest(ctx, "owner", "repo", "package.json", "main")
		gt.NoError(t, err)
		gt.Value(t, data).Equal([]byte(`{"version":"1.2.2"}`))
	})

	t.Run("Missing local file fails", func(t *testing.T) {
		broken := local.NewManifestFile(filepath.Join(t.TempDir(), "absent.json"), "headsha", remote)
		_, err := broken.GetManifest(ctx, "owner", "repo", "package.json", "headsha")
		gt.Error(t, err)
	})
}
