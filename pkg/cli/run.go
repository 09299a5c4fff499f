package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/cli/config"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
	execinfra "github.com/m-mizutani/relgate/pkg/infra/exec"
	"github.com/m-mizutani/relgate/pkg/infra/local"
	"github.com/m-mizutani/relgate/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdRun() *cli.Command {
	var (
		githubCfg  config.GitHub
		policyCfg  config.Policy
		storageCfg config.Storage
		slackCfg   config.Slack

		triggerKind  string
		owner        string
		repo         string
		prNumber     int64
		commitSHA    string
		baseRef      string
		baseSHA      string
		manifestFile string
		artifactDir  string
		workDir      string
	)

	flags := append(githubCfg.Flags(), policyCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "trigger",
			Usage:       "Trigger kind (pull_request, verify, publish, merge)",
			Required:    true,
			Destination: &triggerKind,
			Sources:     cli.EnvVars("RELGATE_TRIGGER"),
		},
		&cli.StringFlag{
			Name:        "owner",
			Usage:       "Repository owner",
			Required:    true,
			Destination: &owner,
			Sources:     cli.EnvVars("RELGATE_OWNER"),
		},
		&cli.StringFlag{
			Name:        "repo",
			Usage:       "Repository name",
			Required:    true,
			Destination: &repo,
			Sources:     cli.EnvVars("RELGATE_REPO"),
		},
		&cli.Int64Flag{
			Name:        "pr",
			Usage:       "Pull request number",
			Destination: &prNumber,
			Sources:     cli.EnvVars("RELGATE_PR"),
		},
		&cli.StringFlag{
			Name:        "commit",
			Usage:       "Commit revision under evaluation",
			Required:    true,
			Destination: &commitSHA,
			Sources:     cli.EnvVars("RELGATE_COMMIT"),
		},
		&cli.StringFlag{
			Name:        "base-ref",
			Usage:       "Base branch the pull request targets",
			Value:       "main",
			Destination: &baseRef,
			Sources:     cli.EnvVars("RELGATE_BASE_REF"),
		},
		&cli.StringFlag{
			Name:        "base-sha",
			Usage:       "Base branch head before merge (required for merge trigger)",
			Destination: &baseSHA,
			Sources:     cli.EnvVars("RELGATE_BASE_SHA"),
		},
		&cli.StringFlag{
			Name:        "manifest-file",
			Usage:       "Local manifest file served for the head revision (remote read when unset)",
			Destination: &manifestFile,
			Sources:     cli.EnvVars("RELGATE_MANIFEST_FILE"),
		},
		&cli.StringFlag{
			Name:        "artifact-dir",
			Usage:       "Local directory artifact store (used when no bucket is configured)",
			Value:       ".relgate/artifacts",
			Destination: &artifactDir,
			Sources:     cli.EnvVars("RELGATE_ARTIFACT_DIR"),
		},
		&cli.StringFlag{
			Name:        "workdir",
			Usage:       "Working directory for pipeline step commands",
			Value:       ".",
			Destination: &workDir,
			Sources:     cli.EnvVars("RELGATE_WORKDIR"),
		},
	)

	return &cli.Command{
		Name:  "run",
		Usage: "Execute one pipeline run from a CI runner; the exit code is the merge gate signal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			policy, err := policyCfg.Load()
			if err != nil {
				return err
			}

			ghClient, err := githubCfg.Configure()
			if err != nil {
				return err
			}

			var manifests interfaces.ManifestSource = ghClient
			if manifestFile != "" {
				manifests = local.NewManifestFile(manifestFile, commitSHA, ghClient)
			}

			var artifacts interfaces.ArtifactStore
			if storageCfg.Bucket != "" {
				artifacts, err = storageCfg.ConfigureArtifacts(ctx)
			} else {
				artifacts, err = local.NewStore(artifactDir)
			}
			if err != nil {
				return err
			}

			runs, err := storageCfg.ConfigureRuns(ctx)
			if err != nil {
				return err
			}

			runner := execinfra.NewRunner(policy, workDir)

			opts := []usecase.Option{usecase.WithRunRepository(runs)}
			if notifier := slackCfg.Configure(); notifier != nil {
				opts = append(opts, usecase.WithNotifier(notifier))
			}

			pipeline := usecase.NewPipeline(ghClient, manifests, artifacts, runner, runner, policy, opts...)

			trigger := &model.TriggerEvent{
				Kind:       model.TriggerKind(triggerKind),
				Owner:      owner,
				Repo:       repo,
				PRNumber:   int(prNumber),
				CommitSHA:  commitSHA,
				BaseRef:    baseRef,
				BaseSHA:    baseSHA,
				ReceivedAt: time.Now(),
			}
			switch trigger.Kind {
			case model.TriggerPullRequest, model.TriggerVerify, model.TriggerPublish, model.TriggerMerge:
			default:
				return goerr.New("unknown trigger kind", goerr.V("trigger", triggerKind))
			}
			if trigger.Kind == model.TriggerMerge && baseSHA == "" {
				return goerr.New("merge trigger requires --base-sha (base head before merge)")
			}

			record, runErr := pipeline.Run(ctx, trigger)
			printVerdict(record, runErr)

			if runErr != nil {
				logger.Error("Run failed", "run_id", record.ID, "state", record.State)
				return runErr
			}
			return nil
		},
	}
}

func printVerdict(record *model.RunRecord, err error) {
	if err == nil {
		color.Green("PASS: %s run %s done", record.Trigger, record.ID)
		if record.Candidate != "" {
			fmt.Printf("candidate: %s\n", record.Candidate)
		}
		if record.Tag != "" {
			fmt.Printf("tag: %s\n", record.Tag)
		}
		return
	}

	if record.State == model.StateBlocked {
		color.Red("BLOCKED: %s (%s)", record.Decision, record.Error)
		return
	}
	color.Red("FAILED: %s", record.Error)
}
