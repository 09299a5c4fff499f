package github

import (
	"context"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// Client implements ReleaseRegistry and ManifestSource against the GitHub
// API with App authentication.
type Client struct {
	gh *github.Client
}

var (
	_ interfaces.ReleaseRegistry = (*Client)(nil)
	_ interfaces.ManifestSource  = (*Client)(nil)
)

// NewClient creates a GitHub client with App authentication
func NewClient(appID, installationID int64, privateKey []byte) (*Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}

	return &Client{
		gh: github.NewClient(&http.Client{Transport: itr}),
	}, nil
}

// TagExists queries the live tag ref; the result must not be cached across
// runs.
func (c *Client) TagExists(ctx context.Context, owner, repo, tag string) (bool, error) {
	_, resp, err := c.gh.Git.GetRef(ctx, owner, repo, "tags/"+tag)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get tag ref",
			goerr.V("owner", owner), goerr.V("repo", repo), goerr.V("tag", tag))
	}
	return true, nil
}

// CreateTag creates the tag ref. A 422 from GitHub means the ref appeared
// between check and create; that race is surfaced as ErrTagConflict, never
// treated as a duplicate to ignore.
func (c *Client) CreateTag(ctx context.Context, owner, repo, tag, commitSHA string) error {
	ref := github.CreateRef{
		Ref: "refs/tags/" + tag,
		SHA: commitSHA,
	}
	_, resp, err := c.gh.Git.CreateRef(ctx, owner, repo, ref)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			return goerr.Wrap(types.ErrTagConflict, "tag ref creation rejected",
				goerr.V("tag", tag), goerr.V("commit_sha", commitSHA))
		}
		return goerr.Wrap(err, "failed to create tag ref",
			goerr.V("tag", tag), goerr.V("commit_sha", commitSHA))
	}
	return nil
}

// CreateRelease creates the release for the tag and uploads its asset
func (c *Client) CreateRelease(ctx context.Context, owner, repo string, release *model.Release) error {
	rel := &github.RepositoryRelease{
		TagName:         github.Ptr(release.TagName),
		Name:            github.Ptr(release.Name),
		Body:            github.Ptr(release.Body),
		TargetCommitish: github.Ptr(release.CommitSHA),
	}
	created, resp, err := c.gh.Repositories.CreateRelease(ctx, owner, repo, rel)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			return goerr.Wrap(types.ErrReleaseConflict, "release creation rejected",
				goerr.V("tag", release.TagName))
		}
		return goerr.Wrap(err, "failed to create release", goerr.V("tag", release.TagName))
	}

	if len(release.Asset) > 0 {
		if err := c.uploadAsset(ctx, owner, repo, created.GetID(), release.AssetName, release.Asset); err != nil {
			return err
		}
	}
	return nil
}

// uploadAsset attaches the artifact to the release. The upload API takes a
// file handle, so the bytes go through a temp file.
func (c *Client) uploadAsset(ctx context.Context, owner, repo string, releaseID int64, name string, data []byte) error {
	tmp, err := os.CreateTemp("", "relgate-asset-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file for asset")
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write asset temp file")
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return goerr.Wrap(err, "failed to rewind asset temp file")
	}

	opts := &github.UploadOptions{Name: name}
	if _, _, err := c.gh.Repositories.UploadReleaseAsset(ctx, owner, repo, releaseID, opts, tmp); err != nil {
		return goerr.Wrap(err, "failed to upload release asset",
			goerr.V("asset", name), goerr.V("release_id", releaseID))
	}
	return nil
}

// SetCommitStatus posts the run outcome for the merge gate
func (c *Client) SetCommitStatus(ctx context.Context, owner, repo, commitSHA string, status *model.CommitStatus) error {
	st := &github.RepoStatus{
		State:       github.Ptr(status.State),
		Context:     github.Ptr(status.Context),
		Description: github.Ptr(status.Description),
	}
	if _, _, err := c.gh.Repositories.CreateStatus(ctx, owner, repo, commitSHA, st); err != nil {
		return goerr.Wrap(err, "failed to create commit status",
			goerr.V("commit_sha", commitSHA), goerr.V("state", status.State))
	}
	return nil
}

// GetManifest reads the manifest file content at a specific ref
func (c *Client) GetManifest(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get manifest content",
			goerr.V("path", path), goerr.V("ref", ref))
	}
	if file == nil {
		return nil, goerr.New("manifest path is not a file", goerr.V("path", path))
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode manifest content", goerr.V("path", path))
	}
	return []byte(content), nil
}
