package model

// Release describes a final release created from a merge commit. It is 1:1
// with its tag and references the freshly rebuilt artifact, never the
// PR-time candidate artifact.
type Release struct {
	TagName   string // "v" + version
	Name      string // Human-readable release title
	Body      string // Release notes
	CommitSHA string // Merge commit the tag points at
	AssetName string // File name of the attached artifact
	Asset     []byte // Artifact content
}

// CommitStatus is the pass/fail signal posted back to the platform's merge
// gate for a specific commit.
type CommitStatus struct {
	State       string // pending, success, failure, error
	Context     string
	Description string
}
