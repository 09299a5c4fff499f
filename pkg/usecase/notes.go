package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/relgate/pkg/domain/interfaces"
	"github.com/m-mizutani/relgate/pkg/domain/model"
)

//go:embed prompts/release_notes_system.md
var notesSystemPrompt string

//go:embed prompts/release_notes_user.md
var notesUserTemplate string

type releaseNotes struct {
	llmClient    gollem.LLMClient
	userTemplate *template.Template
}

// NewReleaseNotes creates an LLM-backed release notes generator
func NewReleaseNotes(llmClient gollem.LLMClient) (interfaces.NotesGenerator, error) {
	tmpl, err := template.New("user").Parse(notesUserTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse release notes template")
	}

	return &releaseNotes{
		llmClient:    llmClient,
		userTemplate: tmpl,
	}, nil
}

// Generate produces a Markdown release body from the merged PR's title and
// body
func (n *releaseNotes) Generate(ctx context.Context, trigger *model.TriggerEvent, version model.Version) (string, error) {
	logger := ctxlog.From(ctx)

	var buf bytes.Buffer
	if err := n.userTemplate.Execute(&buf, map[string]string{
		"Version": version.String(),
		"Title":   trigger.PRTitle,
		"Body":    trigger.PRBody,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render release notes prompt")
	}

	logger.Debug("Generating release notes", "version", version.String(), "prompt_length", buf.Len())

	session, err := n.llmClient.NewSession(ctx,
		gollem.WithSessionSystemPrompt(notesSystemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buf.String()))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate release notes")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("no response from LLM")
	}

	return strings.TrimSpace(resp.Texts[0]), nil
}
