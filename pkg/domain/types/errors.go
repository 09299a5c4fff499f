package types

import "github.com/m-mizutani/goerr/v2"

// Run-terminating error kinds. Every one of these aborts the run and is
// surfaced to the triggering platform; none is retried internally.
var (
	// ErrVersionMalformed indicates the manifest version does not match X.Y.Z
	ErrVersionMalformed = goerr.New("version malformed")

	// ErrNotBumped indicates the candidate version equals the base version
	ErrNotBumped = goerr.New("version not bumped from base")

	// ErrAlreadyReleased indicates a tag for the candidate version already exists
	ErrAlreadyReleased = goerr.New("version already released")

	// ErrTagConflict indicates a tag appeared between existence check and creation
	ErrTagConflict = goerr.New("tag already exists")

	// ErrReleaseConflict indicates a release appeared between existence check and creation
	ErrReleaseConflict = goerr.New("release already exists")

	// ErrStoreFailure indicates artifact persistence failed or hit a write-once conflict
	ErrStoreFailure = goerr.New("artifact store failure")

	// ErrUpstreamStep indicates an opaque lint/build/test/e2e step failed
	ErrUpstreamStep = goerr.New("upstream step failed")
)
