package github

import (
	"context"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
)

// EventProcessor maps GitHub webhook events onto pipeline triggers. The
// mapping is a closed enumeration: anything that is not a recognized
// pull-request lifecycle event is ignored.
type EventProcessor struct {
	pipeline interfaces.PipelineUseCase
	policy   model.Policy
}

// NewEventProcessor creates a processor dispatching into the pipeline
func NewEventProcessor(pipeline interfaces.PipelineUseCase, policy model.Policy) *EventProcessor {
	return &EventProcessor{
		pipeline: pipeline,
		policy:   policy.Resolve(),
	}
}

// ProcessEvent handles one webhook delivery
func (p *EventProcessor) ProcessEvent(ctx context.Context, eventType, deliveryID string, payload interface{}) error {
	logger := ctxlog.From(ctx)

	switch eventType {
	case "pull_request":
		return p.processPullRequestEvent(ctx, deliveryID, payload)
	default:
		logger.Info("Ignoring unsupported event type", "event_type", eventType)
		return nil
	}
}

func (p *EventProcessor) processPullRequestEvent(ctx context.Context, deliveryID string, payload interface{}) error {
	logger := ctxlog.From(ctx)

	event, ok := payload.(*github.PullRequestEvent)
	if !ok {
		logger.Warn("Invalid pull request event payload")
		return nil
	}

	trigger, err := p.triggerFromEvent(event)
	if err != nil {
		return err
	}
	if trigger == nil {
		logger.Info("Ignoring pull request event", "action", event.GetAction())
		return nil
	}
	trigger.ID = deliveryID
	trigger.ReceivedAt = time.Now()

	logger.Info("Dispatching trigger",
		"kind", trigger.Kind,
		"repository", trigger.Owner+"/"+trigger.Repo,
		"pr", trigger.PRNumber,
		"commit_sha", trigger.CommitSHA,
	)

	_, err = p.pipeline.Run(ctx, trigger)
	return err
}

// triggerFromEvent derives the trigger kind and metadata. A nil trigger
// means the event is out of scope.
func (p *EventProcessor) triggerFromEvent(event *github.PullRequestEvent) (*model.TriggerEvent, error) {
	pr := event.GetPullRequest()
	if event.GetRepo() == nil || pr == nil {
		return nil, goerr.New("missing repository or pull request in event")
	}

	trigger := &model.TriggerEvent{
		Owner:     event.GetRepo().GetOwner().GetLogin(),
		Repo:      event.GetRepo().GetName(),
		PRNumber:  pr.GetNumber(),
		CommitSHA: pr.GetHead().GetSHA(),
		BaseRef:   pr.GetBase().GetRef(),
		BaseSHA:   pr.GetBase().GetSHA(),
		PRTitle:   pr.GetTitle(),
		PRBody:    pr.GetBody(),
	}
	if trigger.Owner == "" || trigger.Repo == "" || trigger.CommitSHA == "" {
		return nil, goerr.New("missing required fields in pull request event",
			goerr.V("owner", trigger.Owner), goerr.V("repo", trigger.Repo))
	}

	switch event.GetAction() {
	case "opened", "synchronize", "reopened":
		trigger.Kind = model.TriggerPullRequest

	case "labeled":
		switch event.GetLabel().GetName() {
		case p.policy.VerifyLabel:
			trigger.Kind = model.TriggerVerify
		case p.policy.PublishLabel:
			trigger.Kind = model.TriggerPublish
		default:
			return nil, nil
		}

	case "closed":
		if !pr.GetMerged() || !hasLabel(pr, p.policy.PublishLabel) {
			return nil, nil
		}
		trigger.Kind = model.TriggerMerge
		// The merge path evaluates the merged tree, not the PR head
		trigger.CommitSHA = pr.GetMergeCommitSHA()
		if trigger.CommitSHA == "" {
			return nil, goerr.New("merged pull request carries no merge commit",
				goerr.V("pr", trigger.PRNumber))
		}

	default:
		return nil, nil
	}

	return trigger, nil
}

func hasLabel(pr *github.PullRequest, name string) bool {
	for _, label := range pr.Labels {
		if label.GetName() == name {
			return true
		}
	}
	return false
}
