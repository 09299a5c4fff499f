package local

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
)

// ManifestFile serves a checked-out manifest from the local filesystem, for
// one-shot CLI runs inside a CI runner where the working tree is already at
// the commit under evaluation. The base version still comes from a remote
// source; this covers the head side only when both map to the same file.
type ManifestFile struct {
	path   string
	remote interfaces.ManifestSource
	ref    string
}

var _ interfaces.ManifestSource = (*ManifestFile)(nil)

// NewManifestFile wraps a remote manifest source, serving reads at headRef
// from the local file instead.
func NewManifestFile(path, headRef string, remote interfaces.ManifestSource) *ManifestFile {
	return &ManifestFile{
		path:   path,
		remote: remote,
		ref:    headRef,
	}
}

func (m *ManifestFile) GetManifest(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	if ref == m.ref {
		data, err := os.ReadFile(m.path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read local manifest", goerr.V("path", m.path))
		}
		return data, nil
	}
	if m.remote == nil {
		return nil, goerr.New("no remote manifest source for ref", goerr.V("ref", ref))
	}
	return m.remote.GetManifest(ctx, owner, repo, path, ref)
}
