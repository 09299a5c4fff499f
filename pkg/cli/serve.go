package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relgate/pkg/cli/config"
	githubcontroller "github.com/m-mizutani/relgate/pkg/controller/github"
	controller "github.com/m-mizutani/relgate/pkg/controller/http"
	execinfra "github.com/m-mizutani/relgate/pkg/infra/exec"
	"github.com/m-mizutani/relgate/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		githubCfg  config.GitHub
		policyCfg  config.Policy
		storageCfg config.Storage
		slackCfg   config.Slack
		geminiCfg  config.Gemini
		workDir    string
	)

	flags := append(serverCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, &cli.StringFlag{
		Name:        "workdir",
		Usage:       "Working directory for pipeline step commands",
		Value:       ".",
		Destination: &workDir,
		Sources:     cli.EnvVars("RELGATE_WORKDIR"),
	})

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the webhook HTTP server",
		Flags:   flags,
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

			artifacts, err := storageCfg.ConfigureArtifacts(ctx)
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
			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return err
			}
			if llmClient != nil {
				notes, err := usecase.NewReleaseNotes(llmClient)
				if err != nil {
					return err
				}
				opts = append(opts, usecase.WithNotesGenerator(notes))
			}

			pipeline := usecase.NewPipeline(ghClient, ghClient, artifacts, runner, runner, policy, opts...)
			processor := githubcontroller.NewEventProcessor(pipeline, policy)

			server, err := controller.NewServer(
				ctx,
				processor,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
