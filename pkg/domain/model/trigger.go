package model

import "time"

// TriggerKind is the closed enumeration of events that start a pipeline run
type TriggerKind string

const (
	// TriggerPullRequest fires on PR open or push: validation plus the
	// not-bumped check against the base branch
	TriggerPullRequest TriggerKind = "pull_request"

	// TriggerVerify fires when the verify label is applied: build plus
	// integration/e2e steps
	TriggerVerify TriggerKind = "verify"

	// TriggerPublish fires when the publish label is applied: full decision
	// plus release-candidate build and artifact upload
	TriggerPublish TriggerKind = "publish"

	// TriggerMerge fires when a publish-labeled PR merges into base: full
	// revalidation plus tag and release creation
	TriggerMerge TriggerKind = "merge"
)

// TriggerEvent carries the metadata of a single pipeline invocation. Runs
// share no in-memory state; everything a run needs is here, in the manifest
// at CommitSHA, or in the registry.
type TriggerEvent struct {
	ID         string      // Webhook delivery ID, or a generated run ID for CLI triggers
	Kind       TriggerKind // Which entry point to execute
	Owner      string      // Repository owner
	Repo       string      // Repository name
	PRNumber   int         // Pull request number (0 for merge-only context)
	CommitSHA  string      // Revision under evaluation (merge commit on TriggerMerge)
	BaseRef    string      // Base branch the PR targets
	BaseSHA    string      // Base branch head before merge; required on TriggerMerge, where BaseRef already contains the merged manifest
	PRTitle    string      // Pull request title, used for release notes
	PRBody     string      // Pull request body, used for release notes
	ReceivedAt time.Time   // Time the trigger was accepted
}
