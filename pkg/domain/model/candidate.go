package model

import (
	"fmt"

	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// ComposeCandidate builds the ephemeral pre-merge identifier:
// MAJOR.MINOR.PATCH-SUFFIX-REVISION. The suffix falls back to
// types.DefaultRCSuffix when empty, and the revision is truncated to
// types.RevisionLength characters. The result is deterministic for identical
// inputs, so re-running on the same commit names the same artifact. It is
// never written back to the manifest and never persisted centrally.
func ComposeCandidate(version Version, suffix, revision string) string {
	if suffix == "" {
		suffix = types.DefaultRCSuffix
	}
	if len(revision) > types.RevisionLength {
		revision = revision[:types.RevisionLength]
	}
	return fmt.Sprintf("%s-%s-%s", version.String(), suffix, revision)
}
