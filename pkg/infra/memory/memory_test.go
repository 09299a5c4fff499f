package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
	"github.com/m-mizutani/relgate/pkg/infra/memory"
)

func TestRegistry_TagLifecycle(t *testing.T) {
	ctx := context.Background()
	registry := memory.NewRegistry()

	exists, err := registry.TagExists(ctx, "owner", "repo", "v2.0.0")
	gt.NoError(t, err)
	gt.Value(t, exists).Equal(false)

	gt.NoError(t, registry.CreateTag(ctx, "owner", "repo", "v2.0.0", "sha1"))

	exists, err = registry.TagExists(ctx, "owner", "repo", "v2.0.0")
	gt.NoError(t, err)
	gt.Value(t, exists).Equal(true)

	// Second create for the same tag reports the race, never succeeds
	err = registry.CreateTag(ctx, "owner", "repo", "v2.0.0", "sha2")
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, types.ErrTagConflict)).Equal(true)
}

func TestRegistry_TagScopedToRepository(t *testing.T) {
	ctx := context.Background()
	registry := memory.NewRegistry()

	gt.NoError(t, registry.CreateTag(ctx, "owner", "repo-a", "v1.0.0", "sha"))

	exists, err := registry.TagExists(ctx, "owner", "repo-b", "v1.0.0")
	gt.NoError(t, err)
	gt.Value(t, exists).Equal(false)
}

func TestRegistry_ReleaseConflict(t *testing.T) {
	ctx := context.Background()
	registry := memory.NewRegistry()

	release := &model.Release{TagName: "v1.0.0", Name: "v1.0.0", CommitSHA: "sha"}
	gt.NoError(t, registry.CreateRelease(ctx, "owner", "repo", release))

	err := registry.CreateRelease(ctx, "owner", "repo", release)
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, types.ErrReleaseConflict)).Equal(true)
}

func TestStore_WriteOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	gt.NoError(t, store.Store(ctx, "1.2.3-rc-abcd123", []byte("first")))

	err := store.Store(ctx, "1.2.3-rc-abcd123", []byte("second"))
	gt.Error(t, err)
	gt.Value(t, errors.Is(err, types.ErrStoreFailure)).Equal(true)

	data, err := store.Retrieve(ctx, "1.2.3-rc-abcd123")
	gt.NoError(t, err)
	gt.Value(t, data).Equal([]byte("first"))

	_, err = store.Retrieve(ctx, "missing")
	gt.Error(t, err)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()

	gt.NoError(t, repo.Put(ctx, &model.RunRecord{ID: "run-1"}))
	gt.NoError(t, repo.Put(ctx, &model.RunRecord{ID: "run-2"}))
	gt.NoError(t, repo.Put(ctx, &model.RunRecord{ID: "run-3"}))

	records, err := repo.List(ctx, 2)
	gt.NoError(t, err)
	gt.Value(t, len(records)).Equal(2)
	gt.Value(t, records[0].ID).Equal("run-3")
	gt.Value(t, records[1].ID).Equal("run-2")
}
