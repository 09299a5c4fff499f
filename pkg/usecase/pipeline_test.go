package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
	"github.com/m-mizutani/relgate/pkg/infra/memory"
	"github.com/m-mizutani/relgate/pkg/usecase"
)

// MockManifestSource serves manifests from a ref-keyed map and records reads
type MockManifestSource struct {
	manifests map[string][]byte
	reads     []string
}

func (m *MockManifestSource) GetManifest(_ context.Context, _, _, _, ref string) ([]byte, error) {
	m.reads = append(m.reads, ref)
	data, ok := m.manifests[ref]
	if !ok {
		return nil, errors.New("no manifest at ref: " + ref)
	}
	return data, nil
}

// MockCheckRunner records executed steps and can fail a specific step
type MockCheckRunner struct {
	steps    []model.Step
	failStep model.Step
}

func (m *MockCheckRunner) RunStep(_ context.Context, step model.Step) error {
	m.steps = append(m.steps, step)
	if m.failStep != "" && step == m.failStep {
		return types.ErrUpstreamStep
	}
	return nil
}

var (
	_ interfaces.ManifestSource = (*MockManifestSource)(nil)
	_ interfaces.CheckRunner    = (*MockCheckRunner)(nil)
	_ interfaces.Builder        = (*MockBuilder)(nil)
)

// MockBuilder records packaged versions
type MockBuilder struct {
	packaged []string
	data     []byte
	err      error
}

func (m *MockBuilder) Package(_ context.Context, version string) ([]byte, error) {
	m.packaged = append(m.packaged, version)
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

type testPipeline struct {
	registry  *memory.Registry
	manifests *MockManifestSource
	artifacts *memory.Store
	runs      *memory.Repository
	checks    *MockCheckRunner
	builder   *MockBuilder
	pipeline  *usecase.Pipeline
}

func newTestPipeline(manifests map[string][]byte) *testPipeline {
	tp := &testPipeline{
		registry:  memory.NewRegistry(),
		manifests: &MockManifestSource{manifests: manifests},
		artifacts: memory.NewStore(),
		runs:      memory.NewRepository(),
		checks:    &MockCheckRunner{},
		builder:   &MockBuilder{data: []byte("tarball-bytes")},
	}
	tp.pipeline = usecase.NewPipeline(
		tp.registry, tp.manifests, tp.artifacts, tp.checks, tp.builder,
		model.Policy{RCSuffix: "rc"},
		usecase.WithRunRepository(tp.runs),
	)
	return tp
}

func trigger(kind model.TriggerKind) *model.TriggerEvent {
	return &model.TriggerEvent{
		ID:        "delivery-1",
		Kind:      kind,
		Owner:     "owner",
		Repo:      "repo",
		PRNumber:  12,
		CommitSHA: "abcd123def4567890",
		BaseRef:   "main",
		BaseSHA:   "base456sha",
	}
}

func TestPipeline_PullRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Passes when version is bumped", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.2"}`),
		})

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPullRequest))
		gt.NoError(t, err)
		gt.Value(t, record.State).Equal(model.StateDone)
		gt.Value(t, record.Decision).Equal(model.DecisionAllowed)
		gt.Value(t, record.Version).Equal("1.2.3")
		gt.Value(t, tp.checks.steps).Equal([]model.Step{model.StepLint, model.StepBuild, model.StepUnit})

		status := tp.registry.LastStatus("owner", "repo", "abcd123def4567890")
		gt.Value(t, status).NotNil()
		gt.Value(t, status.State).Equal("success")
	})

	t.Run("Blocked when version equals base", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.3"}`),
		})

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPullRequest))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrNotBumped)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateBlocked)
		gt.Value(t, record.Decision).Equal(model.DecisionBlockedNotBumped)

		status := tp.registry.LastStatus("owner", "repo", "abcd123def4567890")
		gt.Value(t, status.State).Equal("failure")
	})

	t.Run("Matching tag does not block before any tag is meaningful", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.2"}`),
		})
		tp.registry.AddTag("owner", "repo", "v1.2.3", "elsewhere")

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPullRequest))
		gt.NoError(t, err)
		gt.Value(t, record.Decision).Equal(model.DecisionAllowed)
	})

	t.Run("Malformed manifest fails the run", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2"}`),
			"base456sha":        []byte(`{"version":"1.2.2"}`),
		})

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPullRequest))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrVersionMalformed)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateFailed)
	})

	t.Run("Upstream step failure aborts before any decision", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.2"}`),
		})
		tp.checks.failStep = model.StepUnit

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPullRequest))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrUpstreamStep)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateFailed)
		gt.Value(t, len(tp.manifests.reads)).Equal(0)
	})
}

func TestPipeline_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("Runs build and e2e only", func(t *testing.T) {
		tp := newTestPipeline(nil)

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerVerify))
		gt.NoError(t, err)
		gt.Value(t, record.State).Equal(model.StateDone)
		gt.Value(t, tp.checks.steps).Equal([]model.Step{model.StepBuild, model.StepE2E})
		gt.Value(t, len(tp.manifests.reads)).Equal(0)
	})

	t.Run("E2E failure fails the run", func(t *testing.T) {
		tp := newTestPipeline(nil)
		tp.checks.failStep = model.StepE2E

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerVerify))
		gt.Error(t, err)
		gt.Value(t, record.State).Equal(model.StateFailed)
	})
}

func TestPipeline_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores candidate artifact when allowed", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.2"}`),
		})

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPublish))
		gt.NoError(t, err)
		gt.Value(t, record.State).Equal(model.StateDone)
		gt.Value(t, record.Candidate).Equal("1.2.3-rc-abcd123")
		gt.Value(t, tp.builder.packaged).Equal([]string{"1.2.3-rc-abcd123"})

		data, err := tp.artifacts.Retrieve(ctx, "1.2.3-rc-abcd123")
		gt.NoError(t, err)
		gt.Value(t, data).Equal([]byte("tarball-bytes"))
	})

	t.Run("Identical re-run composes the same candidate", func(t *testing.T) {
		manifests := map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.2"}`),
		}
		first := newTestPipeline(manifests)
		second := newTestPipeline(manifests)

		rec1, err := first.pipeline.Run(ctx, trigger(model.TriggerPublish))
		gt.NoError(t, err)
		rec2, err := second.pipeline.Run(ctx, trigger(model.TriggerPublish))
		gt.NoError(t, err)
		gt.Value(t, rec1.Candidate).Equal(rec2.Candidate)
	})

	t.Run("Blocked when already released, nothing stored", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"2.0.0"}`),
			"base456sha":        []byte(`{"version":"1.9.0"}`),
		})
		tp.registry.AddTag("owner", "repo", "v2.0.0", "older-sha")

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPublish))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrAlreadyReleased)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateBlocked)
		gt.Value(t, len(tp.builder.packaged)).Equal(0)

		_, err = tp.artifacts.Retrieve(ctx, "2.0.0-rc-abcd123")
		gt.Error(t, err)
	})

	t.Run("Blocked when not bumped, nothing stored", func(t *testing.T) {
		tp := newTestPipeline(map[string][]byte{
			"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
			"base456sha":        []byte(`{"version":"1.2.3"}`),
		})

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerPublish))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrNotBumped)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateBlocked)
		gt.Value(t, len(tp.builder.packaged)).Equal(0)
	})
}

func TestPipeline_Merge(t *testing.T) {
	ctx := context.Background()

	mergeManifests := map[string][]byte{
		"abcd123def4567890": []byte(`{"version":"2.0.0"}`), // merge commit
		"base456sha":        []byte(`{"version":"1.9.0"}`), // base head before merge
	}

	t.Run("Creates tag and release with rebuilt asset", func(t *testing.T) {
		tp := newTestPipeline(mergeManifests)

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerMerge))
		gt.NoError(t, err)
		gt.Value(t, record.State).Equal(model.StateDone)
		gt.Value(t, record.Tag).Equal("v2.0.0")

		exists, err := tp.registry.TagExists(ctx, "owner", "repo", "v2.0.0")
		gt.NoError(t, err)
		gt.Value(t, exists).Equal(true)

		release := tp.registry.Release("owner", "repo", "v2.0.0")
		gt.Value(t, release).NotNil()
		gt.Value(t, release.CommitSHA).Equal("abcd123def4567890")
		gt.Value(t, release.Asset).Equal([]byte("tarball-bytes"))
		gt.Value(t, release.Body).Equal("Release v2.0.0")

		// Released artifact is stored under the version string
		data, err := tp.artifacts.Retrieve(ctx, "2.0.0")
		gt.NoError(t, err)
		gt.Value(t, data).Equal([]byte("tarball-bytes"))

		// Full validation suite re-ran on the merged commit
		gt.Value(t, tp.checks.steps).Equal([]model.Step{
			model.StepLint, model.StepBuild, model.StepUnit, model.StepE2E,
		})
		gt.Value(t, tp.builder.packaged).Equal([]string{"2.0.0"})
	})

	t.Run("Blocked at merge time when tag appeared since publish", func(t *testing.T) {
		tp := newTestPipeline(mergeManifests)
		tp.registry.AddTag("owner", "repo", "v2.0.0", "racing-sha")

		record, err := tp.pipeline.Run(ctx, trigger(model.TriggerMerge))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrAlreadyReleased)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateBlocked)
		gt.Value(t, tp.registry.Release("owner", "repo", "v2.0.0")).Nil()
	})

	t.Run("Tag race between check and create is a fatal conflict", func(t *testing.T) {
		tp := newTestPipeline(mergeManifests)

		// The registry reports the tag as absent but rejects its creation,
		// reproducing the irreducible check-then-create window
		racy := &racyRegistry{Registry: tp.registry}
		pipeline := usecase.NewPipeline(
			racy, tp.manifests, tp.artifacts, tp.checks, tp.builder,
			model.Policy{RCSuffix: "rc"},
		)
		tp.registry.AddTag("owner", "repo", "v2.0.0", "racing-sha")

		record, err := pipeline.Run(ctx, trigger(model.TriggerMerge))
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, types.ErrTagConflict)).Equal(true)
		gt.Value(t, record.State).Equal(model.StateFailed)
		gt.Value(t, tp.registry.Release("owner", "repo", "v2.0.0")).Nil()
	})

	t.Run("Manifest is re-read on every run", func(t *testing.T) {
		tp := newTestPipeline(mergeManifests)

		_, err := tp.pipeline.Run(ctx, trigger(model.TriggerMerge))
		gt.NoError(t, err)
		firstReads := len(tp.manifests.reads)
		gt.Number(t, firstReads).Greater(0)

		// Second identical run must re-read rather than reuse
		_, _ = tp.pipeline.Run(ctx, trigger(model.TriggerMerge))
		gt.Value(t, len(tp.manifests.reads)).Equal(firstReads * 2)
	})
}

func TestPipeline_RunRecords(t *testing.T) {
	ctx := context.Background()

	tp := newTestPipeline(map[string][]byte{
		"abcd123def4567890": []byte(`{"version":"1.2.3"}`),
		"base456sha":        []byte(`{"version":"1.2.2"}`),
	})

	_, err := tp.pipeline.Run(ctx, trigger(model.TriggerPullRequest))
	gt.NoError(t, err)

	records, err := tp.runs.List(ctx, 10)
	gt.NoError(t, err)
	gt.Value(t, len(records)).Equal(1)
	gt.Value(t, records[0].ID).Equal("delivery-1")
	gt.Value(t, records[0].Trigger).Equal(model.TriggerPullRequest)
	gt.Value(t, records[0].State).Equal(model.StateDone)
	gt.Value(t, records[0].Repository).Equal("owner/repo")
}

// racyRegistry hides an existing tag from TagExists so that CreateTag hits
// the conflict path
type racyRegistry struct {
	*memory.Registry
}

func (r *racyRegistry) TagExists(_ context.Context, _, _, _ string) (bool, error) {
	return false, nil
}
