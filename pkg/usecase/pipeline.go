package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// Pipeline dispatches pipeline runs by trigger kind. It holds no mutable
// state: concurrent runs coordinate only through the registry and the
// manifest, and every invocation re-reads both.
type Pipeline struct {
	registry  interfaces.ReleaseRegistry
	manifests interfaces.ManifestSource
	artifacts interfaces.ArtifactStore
	checks    interfaces.CheckRunner
	builder   interfaces.Builder
	policy    model.Policy

	runs     interfaces.RunRepository
	notifier interfaces.Notifier
	notes    interfaces.NotesGenerator
}

// Option configures optional Pipeline collaborators
type Option func(*Pipeline)

// WithRunRepository enables persistence of run records
func WithRunRepository(repo interfaces.RunRepository) Option {
	return func(p *Pipeline) {
		p.runs = repo
	}
}

// WithNotifier enables run notifications
func WithNotifier(n interfaces.Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithNotesGenerator enables generated release notes on the merge path
func WithNotesGenerator(n interfaces.NotesGenerator) Option {
	return func(p *Pipeline) {
		p.notes = n
	}
}

// NewPipeline creates the pipeline controller. The policy snapshot is
// resolved here; it is not re-read during a run.
func NewPipeline(
	registry interfaces.ReleaseRegistry,
	manifests interfaces.ManifestSource,
	artifacts interfaces.ArtifactStore,
	checks interfaces.CheckRunner,
	builder interfaces.Builder,
	policy model.Policy,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		registry:  registry,
		manifests: manifests,
		artifacts: artifacts,
		checks:    checks,
		builder:   builder,
		policy:    policy.Resolve(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one pipeline run for the trigger. The returned record holds
// the final state even when err is non-nil; err itself is the signal
// consumed by the platform's merge gate.
func (p *Pipeline) Run(ctx context.Context, trigger *model.TriggerEvent) (*model.RunRecord, error) {
	logger := ctxlog.From(ctx)

	record := &model.RunRecord{
		ID:         trigger.ID,
		Trigger:    trigger.Kind,
		Repository: trigger.Owner + "/" + trigger.Repo,
		CommitSHA:  trigger.CommitSHA,
		State:      model.StateIdle,
		StartedAt:  time.Now(),
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	logger.Info("Starting pipeline run",
		"run_id", record.ID,
		"trigger", trigger.Kind,
		"repository", record.Repository,
		"commit_sha", trigger.CommitSHA,
	)

	p.reportStatus(ctx, trigger, "pending", "run in progress")

	var err error
	switch trigger.Kind {
	case model.TriggerPullRequest:
		err = p.runPullRequest(ctx, trigger, record)
	case model.TriggerVerify:
		err = p.runVerify(ctx, trigger, record)
	case model.TriggerPublish:
		err = p.runPublish(ctx, trigger, record)
	case model.TriggerMerge:
		err = p.runMerge(ctx, trigger, record)
	default:
		err = goerr.New("unknown trigger kind", goerr.V("kind", trigger.Kind))
	}

	record.FinishedAt = time.Now()

	switch {
	case err == nil:
		record.State = model.StateDone
		p.reportStatus(ctx, trigger, "success", "release checks passed")
	case record.State == model.StateBlocked:
		record.Error = err.Error()
		p.reportStatus(ctx, trigger, "failure", string(record.Decision))
		p.notifyBlocked(ctx, record)
	default:
		record.State = model.StateFailed
		record.Error = err.Error()
		p.reportStatus(ctx, trigger, "failure", "pipeline run failed")
	}

	p.saveRecord(ctx, record)

	if err != nil {
		logger.Error("Pipeline run finished with failure",
			"run_id", record.ID,
			"state", record.State,
			"decision", record.Decision,
			"error", err,
		)
		return record, err
	}

	logger.Info("Pipeline run finished",
		"run_id", record.ID,
		"state", record.State,
		"decision", record.Decision,
		"candidate", record.Candidate,
		"tag", record.Tag,
	)
	return record, nil
}

// runPullRequest handles PR open/push: opaque validation steps plus the
// not-bumped rule. No tag-existence check is meaningful before any tag can
// exist, so the registry is not consulted.
func (p *Pipeline) runPullRequest(ctx context.Context, trigger *model.TriggerEvent, record *model.RunRecord) error {
	record.State = model.StateValidating

	for _, step := range []model.Step{model.StepLint, model.StepBuild, model.StepUnit} {
		if err := p.checks.RunStep(ctx, step); err != nil {
			return err
		}
	}

	head, base, err := p.readVersions(ctx, trigger)
	if err != nil {
		return err
	}
	record.Version = head.String()

	decision, err := Decide(ctx, p.registry, trigger.Owner, trigger.Repo, head, base, false)
	if err != nil {
		return err
	}
	record.Decision = decision
	if decision.Blocked() {
		record.State = model.StateBlocked
		return goerr.Wrap(decisionErr(decision), "pull request blocked",
			goerr.V("head", head.String()), goerr.V("base", base.String()))
	}

	return nil
}

// runVerify handles the verify label: build plus integration/e2e steps. It
// is orthogonal to version policy and may run concurrently with PR
// validation.
func (p *Pipeline) runVerify(ctx context.Context, _ *model.TriggerEvent, record *model.RunRecord) error {
	record.State = model.StateValidating

	for _, step := range []model.Step{model.StepBuild, model.StepE2E} {
		if err := p.checks.RunStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

// runPublish handles the publish label: full decision, then candidate build
// and artifact upload. Nothing is stored when the decision blocks.
func (p *Pipeline) runPublish(ctx context.Context, trigger *model.TriggerEvent, record *model.RunRecord) error {
	record.State = model.StateValidating

	head, base, err := p.readVersions(ctx, trigger)
	if err != nil {
		return err
	}
	record.Version = head.String()

	decision, err := Decide(ctx, p.registry, trigger.Owner, trigger.Repo, head, base, true)
	if err != nil {
		return err
	}
	record.Decision = decision
	if decision.Blocked() {
		record.State = model.StateBlocked
		return goerr.Wrap(decisionErr(decision), "publish blocked",
			goerr.V("head", head.String()), goerr.V("base", base.String()))
	}

	record.State = model.StateCandidateBuild
	candidate := model.ComposeCandidate(head, p.policy.RCSuffix, trigger.CommitSHA)
	record.Candidate = candidate

	if err := p.checks.RunStep(ctx, model.StepBuild); err != nil {
		return err
	}
	data, err := p.builder.Package(ctx, candidate)
	if err != nil {
		return err
	}

	if err := p.artifacts.Store(ctx, candidate, data); err != nil {
		return goerr.Wrap(err, "failed to store candidate artifact", goerr.V("candidate", candidate))
	}

	ctxlog.From(ctx).Info("Stored release candidate artifact",
		"candidate", candidate,
		"size_bytes", len(data),
	)
	return nil
}

// runMerge handles the merge of a publish-labeled PR: full revalidation and
// rebuild from the merged commit, a fresh decision against registry state at
// merge time, then tag and release creation. The released artifact is
// rebuilt here so it provably matches the merged tree; the PR-time candidate
// artifact is never reused.
func (p *Pipeline) runMerge(ctx context.Context, trigger *model.TriggerEvent, record *model.RunRecord) error {
	logger := ctxlog.From(ctx)
	record.State = model.StateValidating

	for _, step := range []model.Step{model.StepLint, model.StepBuild, model.StepUnit, model.StepE2E} {
		if err := p.checks.RunStep(ctx, step); err != nil {
			return err
		}
	}

	head, base, err := p.readVersions(ctx, trigger)
	if err != nil {
		return err
	}
	record.Version = head.String()

	data, err := p.builder.Package(ctx, head.String())
	if err != nil {
		return err
	}

	// The rebuild elapsed real time; the decision below re-queries the
	// registry immediately before tag creation.
	decision, err := Decide(ctx, p.registry, trigger.Owner, trigger.Repo, head, base, true)
	if err != nil {
		return err
	}
	record.Decision = decision
	if decision.Blocked() {
		record.State = model.StateBlocked
		return goerr.Wrap(decisionErr(decision), "merge release blocked",
			goerr.V("merged", head.String()), goerr.V("base", base.String()))
	}

	record.State = model.StateMerging
	tag := head.TagName()

	if err := p.registry.CreateTag(ctx, trigger.Owner, trigger.Repo, tag, trigger.CommitSHA); err != nil {
		return goerr.Wrap(err, "failed to create tag",
			goerr.V("tag", tag), goerr.V("commit_sha", trigger.CommitSHA))
	}
	record.Tag = tag

	if err := p.artifacts.Store(ctx, head.String(), data); err != nil {
		return goerr.Wrap(err, "failed to store release artifact", goerr.V("version", head.String()))
	}

	release := &model.Release{
		TagName:   tag,
		Name:      tag,
		Body:      p.releaseNotes(ctx, trigger, head),
		CommitSHA: trigger.CommitSHA,
		AssetName: fmt.Sprintf("%s-%s.tar.gz", trigger.Repo, head.String()),
		Asset:     data,
	}
	if err := p.registry.CreateRelease(ctx, trigger.Owner, trigger.Repo, release); err != nil {
		return goerr.Wrap(err, "failed to create release", goerr.V("tag", tag))
	}

	logger.Info("Created release",
		"tag", tag,
		"asset", release.AssetName,
		"asset_bytes", len(data),
	)

	if p.notifier != nil {
		if nerr := p.notifier.NotifyReleased(ctx, record); nerr != nil {
			logger.Warn("Failed to send release notification", "error", nerr)
		}
	}
	return nil
}

// readVersions re-reads the manifest at the commit under evaluation and at
// the PR base, fresh on every run.
func (p *Pipeline) readVersions(ctx context.Context, trigger *model.TriggerEvent) (head, base model.Version, err error) {
	headManifest, err := p.manifests.GetManifest(ctx, trigger.Owner, trigger.Repo, p.policy.ManifestPath, trigger.CommitSHA)
	if err != nil {
		return head, base, goerr.Wrap(err, "failed to read manifest at head",
			goerr.V("ref", trigger.CommitSHA))
	}
	head, err = model.ExtractVersion(headManifest)
	if err != nil {
		return head, base, err
	}

	// On a merge trigger the base branch already contains the merged
	// manifest, so the base version is read at the pre-merge base head.
	baseRef := trigger.BaseRef
	if trigger.BaseSHA != "" {
		baseRef = trigger.BaseSHA
	}
	baseManifest, err := p.manifests.GetManifest(ctx, trigger.Owner, trigger.Repo, p.policy.ManifestPath, baseRef)
	if err != nil {
		return head, base, goerr.Wrap(err, "failed to read manifest at base",
			goerr.V("ref", baseRef))
	}
	base, err = model.ExtractVersion(baseManifest)
	if err != nil {
		return head, base, err
	}

	return head, base, nil
}

// releaseNotes returns generated notes when a generator is configured,
// otherwise a static body. Generation failures fall back; they never fail
// the release.
func (p *Pipeline) releaseNotes(ctx context.Context, trigger *model.TriggerEvent, version model.Version) string {
	fallback := "Release " + version.TagName()
	if p.notes == nil {
		return fallback
	}

	body, err := p.notes.Generate(ctx, trigger, version)
	if err != nil || body == "" {
		ctxlog.From(ctx).Warn("Release notes generation failed, using fallback", "error", err)
		return fallback
	}
	return body
}

func (p *Pipeline) reportStatus(ctx context.Context, trigger *model.TriggerEvent, state, description string) {
	status := &model.CommitStatus{
		State:       state,
		Context:     types.StatusContext,
		Description: description,
	}
	if err := p.registry.SetCommitStatus(ctx, trigger.Owner, trigger.Repo, trigger.CommitSHA, status); err != nil {
		ctxlog.From(ctx).Warn("Failed to set commit status",
			"state", state,
			"commit_sha", trigger.CommitSHA,
			"error", err,
		)
	}
}

func (p *Pipeline) saveRecord(ctx context.Context, record *model.RunRecord) {
	if p.runs == nil {
		return
	}
	if err := p.runs.Put(ctx, record); err != nil {
		ctxlog.From(ctx).Warn("Failed to persist run record", "run_id", record.ID, "error", err)
	}
}

func (p *Pipeline) notifyBlocked(ctx context.Context, record *model.RunRecord) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyBlocked(ctx, record); err != nil {
		ctxlog.From(ctx).Warn("Failed to send blocked notification", "run_id", record.ID, "error", err)
	}
}

func decisionErr(decision model.Decision) error {
	switch decision {
	case model.DecisionBlockedNotBumped:
		return types.ErrNotBumped
	case model.DecisionBlockedAlreadyReleased:
		return types.ErrAlreadyReleased
	default:
		return nil
	}
}
