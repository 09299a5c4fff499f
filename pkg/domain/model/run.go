package model

import "time"

// RunState is the pipeline state machine position. Transitions:
// Idle -> Validating -> {Blocked, CandidateBuild, Merging} -> Done | Failed
type RunState string

const (
	StateIdle           RunState = "idle"
	StateValidating     RunState = "validating"
	StateBlocked        RunState = "blocked"
	StateCandidateBuild RunState = "candidate_build"
	StateMerging        RunState = "merging"
	StateDone           RunState = "done"
	StateFailed         RunState = "failed"
)

// Decision is the comparator outcome for a (candidate, base, registry) triple
type Decision string

const (
	DecisionAllowed                Decision = "allowed"
	DecisionBlockedNotBumped       Decision = "blocked_not_bumped"
	DecisionBlockedAlreadyReleased Decision = "blocked_already_released"
)

// Blocked reports whether the decision forbids proceeding
func (d Decision) Blocked() bool {
	return d == DecisionBlockedNotBumped || d == DecisionBlockedAlreadyReleased
}

// RunRecord is the persisted audit record of one pipeline run. The pipeline
// never reads these back to make decisions; they exist for operators.
type RunRecord struct {
	ID         string      `firestore:"id" json:"id"`
	Trigger    TriggerKind `firestore:"trigger" json:"trigger"`
	Repository string      `firestore:"repository" json:"repository"`
	CommitSHA  string      `firestore:"commit_sha" json:"commit_sha"`
	Version    string      `firestore:"version,omitempty" json:"version,omitempty"`
	Candidate  string      `firestore:"candidate,omitempty" json:"candidate,omitempty"`
	Tag        string      `firestore:"tag,omitempty" json:"tag,omitempty"`
	State      RunState    `firestore:"state" json:"state"`
	Decision   Decision    `firestore:"decision,omitempty" json:"decision,omitempty"`
	Error      string      `firestore:"error,omitempty" json:"error,omitempty"`
	StartedAt  time.Time   `firestore:"started_at" json:"started_at"`
	FinishedAt time.Time   `firestore:"finished_at" json:"finished_at"`
}
