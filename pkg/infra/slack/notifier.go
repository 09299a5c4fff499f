package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Notifier posts run outcomes to a Slack incoming webhook
type Notifier struct {
	webhookURL string
}

var _ interfaces.Notifier = (*Notifier)(nil)

// NewNotifier creates a Slack notifier for the incoming webhook URL
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{webhookURL: webhookURL}
}

func (n *Notifier) NotifyReleased(ctx context.Context, record *model.RunRecord) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":rocket: Released %s of %s (commit %s)",
			record.Tag, record.Repository, record.CommitSHA),
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post release notification")
	}
	return nil
}

func (n *Notifier) NotifyBlocked(ctx context.Context, record *model.RunRecord) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":no_entry: Release run for %s blocked: %s (version %s, commit %s)",
			record.Repository, record.Decision, record.Version, record.CommitSHA),
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post blocked notification")
	}
	return nil
}
