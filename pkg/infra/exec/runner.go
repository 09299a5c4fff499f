package exec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	"github.com/m-mizutani/relgate/pkg/domain/types"
)

// Runner executes the opaque pipeline steps as shell commands configured in
// the policy. The pipeline never interprets their output; a non-zero exit is
// an upstream step failure.
type Runner struct {
	policy  model.Policy
	workDir string
}

var (
	_ interfaces.CheckRunner = (*Runner)(nil)
	_ interfaces.Builder     = (*Runner)(nil)
)

// NewRunner creates a command runner rooted at workDir
func NewRunner(policy model.Policy, workDir string) *Runner {
	return &Runner{
		policy:  policy.Resolve(),
		workDir: workDir,
	}
}

// RunStep executes the configured command for a step. Steps with no
// configured command are skipped: an absent check cannot fail the run.
func (r *Runner) RunStep(ctx context.Context, step model.Step) error {
	logger := ctxlog.From(ctx)

	command := r.policy.Command(step)
	if command == "" {
		logger.Debug("No command configured for step, skipping", "step", step)
		return nil
	}

	logger.Info("Running step", "step", step, "command", command)

	if err := r.runCommand(ctx, command); err != nil {
		return goerr.Wrap(types.ErrUpstreamStep, "step command failed",
			goerr.V("step", step), goerr.V("command", command), goerr.V("error", err.Error()))
	}
	return nil
}

// Package runs the configured package command and returns the artifact it
// wrote at the policy's artifact path.
func (r *Runner) Package(ctx context.Context, version string) ([]byte, error) {
	logger := ctxlog.From(ctx)

	command := r.policy.Command("package")
	if command == "" {
		return nil, goerr.Wrap(types.ErrUpstreamStep, "no package command configured")
	}

	logger.Info("Packaging artifact", "version", version, "command", command)

	if err := r.runCommand(ctx, command, "PACKAGE_VERSION="+version); err != nil {
		return nil, goerr.Wrap(types.ErrUpstreamStep, "package command failed",
			goerr.V("command", command), goerr.V("error", err.Error()))
	}

	artifactPath := r.policy.ArtifactPath
	if !filepath.IsAbs(artifactPath) {
		artifactPath = filepath.Join(r.workDir, artifactPath)
	}
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, goerr.Wrap(types.ErrUpstreamStep, "package command produced no artifact",
			goerr.V("path", artifactPath), goerr.V("error", err.Error()))
	}
	return data, nil
}

func (r *Runner) runCommand(ctx context.Context, command string, extraEnv ...string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.workDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "BUILD_TOOL_VERSION="+r.policy.BuildToolVersion)
	cmd.Env = append(cmd.Env, extraEnv...)
	return cmd.Run()
}
