package interfaces

import (
	"context"

	"github.com/m-mizutani/relgate/pkg/domain/model"
)

// ReleaseRegistry is the external tag/release service. It is the sole
// arbiter of mutual exclusion across concurrent runs: there are no locks,
// and no transactional guarantee between an existence check and the create
// that follows it. Callers must re-query existence at the moment of each
// decision and treat any conflict as a fatal run failure.
type ReleaseRegistry interface {
	// TagExists queries live remote state; results must never be cached
	// across runs
	TagExists(ctx context.Context, owner, repo, tag string) (bool, error)

	// CreateTag creates an immutable tag pointing at commitSHA. Fails with
	// types.ErrTagConflict when the tag appeared between check and create.
	CreateTag(ctx context.Context, owner, repo, tag, commitSHA string) error

	// CreateRelease creates the release for an existing tag and attaches the
	// asset. Fails with types.ErrReleaseConflict under the analogous race.
	CreateRelease(ctx context.Context, owner, repo string, release *model.Release) error

	// SetCommitStatus reports the run outcome to the platform's merge gate
	SetCommitStatus(ctx context.Context, owner, repo, commitSHA string, status *model.CommitStatus) error
}

// ManifestSource serves manifest content at a specific revision. The
// pipeline re-reads the manifest fresh on every run and never caches it.
type ManifestSource interface {
	GetManifest(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
}

// ArtifactStore persists named build artifacts. Names are write-once: a
// second store under the same name fails with types.ErrStoreFailure.
type ArtifactStore interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
}
