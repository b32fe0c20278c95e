package usecase

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"text/template"

	"github.com/razou/dev-ops/internal/domain"
)

// PreparePRBodyUseCase renders the title and body of the release pull request.
type PreparePRBodyUseCase struct{}

// sanitize escapes a value so it cannot inject HTML or template syntax into the body.
func (uc *PreparePRBodyUseCase) sanitize(value string) string {
	return html.EscapeString(value)
}

// Title returns the pull request title, which is the release commit message.
func (uc *PreparePRBodyUseCase) Title(release *domain.Release) string {
	return release.CommitMessage()
}

// Execute runs the use case.
func (uc *PreparePRBodyUseCase) Execute(_ context.Context, release *domain.Release) (string, error) {
	if release == nil {
		return "", fmt.Errorf("release cannot be nil")
	}
	if release.Current == nil || release.Next == nil {
		return "", fmt.Errorf("release versions cannot be nil")
	}
	safeData := struct {
		Version     string
		Previous    string
		ReleaseType string
		Branch      string
		VersionFile string
	}{
		Version:     uc.sanitize(release.Next.String()),
		Previous:    uc.sanitize(release.Current.String()),
		ReleaseType: uc.sanitize(release.Type.String()),
		Branch:      uc.sanitize(release.BranchName),
		VersionFile: uc.sanitize(release.VersionFile),
	}
	tmpl, err := template.New("pr-body").Option("missingkey=error").Parse(prBodyTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse PR body template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, safeData); err != nil {
		return "", fmt.Errorf("failed to execute PR body template: %w", err)
	}
	output := buf.String()
	if strings.Contains(strings.ToLower(output), "<script") ||
		strings.Contains(output, "{{") || strings.Contains(output, "}}") {
		return "", fmt.Errorf("potential injection detected in PR body output")
	}
	return output, nil
}

const prBodyTemplate = `
## Release {{.Version}}

This PR prepares the {{.ReleaseType}} release of version {{.Version}}.

| | |
|---|---|
| Previous version | {{.Previous}} |
| New version | {{.Version}} |
| Branch | ` + "`{{.Branch}}`" + ` |
| Version file | ` + "`{{.VersionFile}}`" + ` |
`
