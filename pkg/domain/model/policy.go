package model

import "github.com/m-mizutani/relgate/pkg/domain/types"

// Step is an opaque pipeline step delegated to an external command
type Step string

const (
	StepLint  Step = "lint"
	StepBuild Step = "build"
	StepUnit  Step = "unit"
	StepE2E   Step = "e2e"
)

// Policy is the immutable per-run configuration snapshot. It is resolved
// once, with fallbacks applied at resolution time, and never re-read
// mid-run.
type Policy struct {
	BuildToolVersion string            `toml:"build_tool_version"`
	RCSuffix         string            `toml:"rc_suffix"`
	ManifestPath     string            `toml:"manifest_path"`
	VerifyLabel      string            `toml:"verify_label"`
	PublishLabel     string            `toml:"publish_label"`
	ArtifactPath     string            `toml:"artifact_path"`
	Commands         map[string]string `toml:"commands"`
}

// Resolve returns a copy with fallbacks applied to every empty field
func (p Policy) Resolve() Policy {
	if p.BuildToolVersion == "" {
		p.BuildToolVersion = types.DefaultBuildToolVersion
	}
	if p.RCSuffix == "" {
		p.RCSuffix = types.DefaultRCSuffix
	}
	if p.ManifestPath == "" {
		p.ManifestPath = "package.json"
	}
	if p.VerifyLabel == "" {
		p.VerifyLabel = "verify"
	}
	if p.PublishLabel == "" {
		p.PublishLabel = "publish"
	}
	if p.ArtifactPath == "" {
		p.ArtifactPath = "dist/package.tar.gz"
	}
	return p
}

// Command returns the configured command line for a step, or "" when the
// step is not configured
func (p Policy) Command(step Step) string {
	return p.Commands[string(step)]
}
