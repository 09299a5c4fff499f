package interfaces

import (
	"context"

	"github.com/m-mizutani/relgate/pkg/domain/model"
)

// PipelineUseCase executes one pipeline run for a trigger. Implementations
// are stateless and re-entrant: every invocation reconstructs its decision
// from manifest content and registry state, never from memory of a prior
// run. The returned record reflects the final state even when err is
// non-nil.
type PipelineUseCase interface {
	Run(ctx context.Context, trigger *model.TriggerEvent) (*model.RunRecord, error)
}

// CheckRunner executes an opaque lint/build/test/e2e step. Any failure is
// reported as types.ErrUpstreamStep; the pipeline does not interpret step
// output.
type CheckRunner interface {
	RunStep(ctx context.Context, step model.Step) error
}

// Builder packages the working tree into a distributable artifact
type Builder interface {
	Package(ctx context.Context, version string) ([]byte, error)
}

// RunRepository persists pipeline run records for audit
type RunRepository interface {
	Put(ctx context.Context, record *model.RunRecord) error
	List(ctx context.Context, limit int) ([]*model.RunRecord, error)
}

// Notifier delivers non-authoritative run notifications. Delivery failures
// are logged, not propagated: a lost notification must not fail a release.
type Notifier interface {
	NotifyReleased(ctx context.Context, record *model.RunRecord) error
	NotifyBlocked(ctx context.Context, record *model.RunRecord) error
}

// NotesGenerator produces release notes for the merge path. Generation is
// cosmetic: failures fall back to a static body.
type NotesGenerator interface {
	Generate(ctx context.Context, trigger *model.TriggerEvent, version model.Version) (string, error)
}
