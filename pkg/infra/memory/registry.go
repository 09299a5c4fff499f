package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// Registry is an in-memory ReleaseRegistry for tests and local runs. The
// mutex stands in for the remote registry's per-name atomicity: check and
// create from different runs can still interleave, exactly like the real
// contract.
type Registry struct {
	mu       sync.Mutex
	tags     map[string]string // tag name -> commit SHA
	releases map[string]*model.Release
	statuses map[string]*model.CommitStatus // commit SHA -> last status
}

// NewRegistry creates an empty in-memory registry
func NewRegistry() *Registry {
	return &Registry{
		tags:     make(map[string]string),
		releases: make(map[string]*model.Release),
		statuses: make(map[string]*model.CommitStatus),
	}
}

var _ interfaces.ReleaseRegistry = (*Registry)(nil)

func key(owner, repo, name string) string {
	return owner + "/" + repo + "/" + name
}

func (r *Registry) TagExists(_ context.Context, owner, repo, tag string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tags[key(owner, repo, tag)]
	return ok, nil
}

func (r *Registry) CreateTag(_ context.Context, owner, repo, tag, commitSHA string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(owner, repo, tag)
	if _, ok := r.tags[k]; ok {
		return goerr.Wrap(types.ErrTagConflict, "tag exists", goerr.V("tag", tag))
	}
	r.tags[k] = commitSHA
	return nil
}

func (r *Registry) CreateRelease(_ context.Context, owner, repo string, release *model.Release) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(owner, repo, release.TagName)
	if _, ok := r.releases[k]; ok {
		return goerr.Wrap(types.ErrReleaseConflict, "release exists", goerr.V("tag", release.TagName))
	}
	r.releases[k] = release
	return nil
}

func (r *Registry) SetCommitStatus(_ context.Context, owner, repo, commitSHA string, status *model.CommitStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[key(owner, repo, commitSHA)] = status
	return nil
}

// AddTag seeds an existing tag, for tests
func (r *Registry) AddTag(owner, repo, tag, commitSHA string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[key(owner, repo, tag)] = commitSHA
}

// Release returns the stored release for a tag, for tests
func (r *Registry) Release(owner, repo, tag string) *model.Release {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.releases[key(owner, repo, tag)]
}

// LastStatus returns the last commit status set for a commit, for tests
func (r *Registry) LastStatus(owner, repo, commitSHA string) *model.CommitStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[key(owner, repo, commitSHA)]
}
