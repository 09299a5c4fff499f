package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Policy holds release policy configuration. Values can come from a TOML
// file and be overridden by flags/env; the result is resolved once into an
// immutable snapshot.
type Policy struct {
	FilePath         string
	BuildToolVersion string
	RCSuffix         string
	ManifestPath     string
	VerifyLabel      string
	PublishLabel     string
}

// Flags returns CLI flags for policy configuration
func (c *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "Path to TOML policy file (labels, commands, artifact path)",
			Destination: &c.FilePath,
			Sources:     cli.EnvVars("RELGATE_POLICY_FILE"),
		},
		&cli.StringFlag{
			Name:        "build-tool-version",
			Usage:       "Build tool version passed to pipeline steps",
			Destination: &c.BuildToolVersion,
			Sources:     cli.EnvVars("RELGATE_BUILD_TOOL_VERSION"),
		},
		&cli.StringFlag{
			Name:        "rc-suffix",
			Usage:       "Suffix segment of release candidate identifiers",
			Destination: &c.RCSuffix,
			Sources:     cli.EnvVars("RC_SUFFIX", "RELGATE_RC_SUFFIX"),
		},
		&cli.StringFlag{
			Name:        "manifest-path",
			Usage:       "Path of the version manifest within the repository",
			Destination: &c.ManifestPath,
			Sources:     cli.EnvVars("RELGATE_MANIFEST_PATH"),
		},
		&cli.StringFlag{
			Name:        "verify-label",
			Usage:       "PR label that triggers the verify pipeline",
			Destination: &c.VerifyLabel,
			Sources:     cli.EnvVars("RELGATE_VERIFY_LABEL"),
		},
		&cli.StringFlag{
			Name:        "publish-label",
			Usage:       "PR label that triggers the publish pipeline",
			Destination: &c.PublishLabel,
			Sources:     cli.EnvVars("RELGATE_PUBLISH_LABEL"),
		},
	}
}

// Load builds the resolved policy snapshot: TOML file first, flag/env
// values on top, fallbacks last.
func (c *Policy) Load() (model.Policy, error) {
	var policy model.Policy

	if c.FilePath != "" {
		data, err := os.ReadFile(c.FilePath)
		if err != nil {
			return policy, goerr.Wrap(err, "failed to read policy file", goerr.V("path", c.FilePath))
		}
		if err := toml.Unmarshal(data, &policy); err != nil {
			return policy, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", c.FilePath))
		}
	}

	if c.BuildToolVersion != "" {
		policy.BuildToolVersion = c.BuildToolVersion
	}
	if c.RCSuffix != "" {
		policy.RCSuffix = c.RCSuffix
	}
	if c.ManifestPath != "" {
		policy.ManifestPath = c.ManifestPath
	}
	if c.VerifyLabel != "" {
		policy.VerifyLabel = c.VerifyLabel
	}
	if c.PublishLabel != "" {
		policy.PublishLabel = c.PublishLabel
	}

	return policy.Resolve(), nil
}
