package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
)

// Decide applies the release policy to a (candidate, base, registry) triple.
//
// The not-bumped rule forbids equality only: a candidate below base still
// passes. Do not tighten it to "candidate must exceed base" without a
// product decision.
//
// When checkRegistry is true the candidate is also blocked if its tag
// already exists. The registry is queried live on every call: base-branch
// state and registry contents can change between PR creation and merge, and
// this re-evaluation is the primary defense against two PRs racing to the
// same version. Pre-tag validation (PR open/push) passes checkRegistry=false
// since no tag can meaningfully exist yet.
func Decide(ctx context.Context, registry interfaces.ReleaseRegistry, owner, repo string, candidate, base model.Version, checkRegistry bool) (model.Decision, error) {
	if candidate.Equal(base) {
		return model.DecisionBlockedNotBumped, nil
	}

	if checkRegistry {
		exists, err := registry.TagExists(ctx, owner, repo, candidate.TagName())
		if err != nil {
			return "", goerr.Wrap(err, "failed to query tag existence",
				goerr.V("tag", candidate.TagName()))
		}
		if exists {
			return model.DecisionBlockedAlreadyReleased, nil
		}
	}

	return model.DecisionAllowed, nil
}
