package types

// Version is the relgate service version
const Version = "v0.1.0"

// ServiceName is used in health responses and commit status contexts
const ServiceName = "relgate"

// StatusContext is the commit status context posted to pull requests
const StatusContext = "relgate/release"

const (
	// DefaultRCSuffix is used when no release-candidate suffix is configured.
	// It must never be empty: the candidate grammar requires a non-empty
	// middle segment.
	DefaultRCSuffix = "rc"

	// DefaultBuildToolVersion is the fallback build tool version passed to
	// opaque build steps when none is configured.
	DefaultBuildToolVersion = "latest"

	// RevisionLength is the number of leading characters kept from a commit
	// revision when composing a candidate string.
	RevisionLength = 7
)
