// Package render turns analysis results into terminal and markdown output.
package render

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/bryanwahyu/vaidyamitra/internal/domain/ai"
	"github.com/bryanwahyu/vaidyamitra/internal/domain/triage"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/ai/openai"
	"github.com/bryanwahyu/vaidyamitra/internal/infra/ai/prompt"
)

// Notice is shown under every report.
const Notice = "Note: this is for information only. If it is urgent, contact the nearest doctor or hospital immediately."

var (
	criticalBadge = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#C0392B"))
	normalBadge = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#27AE60"))
	unknownBadge = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#2C3E50")).Background(lipgloss.Color("#BDC3C7"))
	noticeStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#E67E22"))
)

// Badge renders the urgency label.
func Badge(u triage.Urgency) string {
	label := "URGENCY: " + strings.ToUpper(u.String())
	switch u {
	case triage.UrgencyCritical:
		return criticalBadge.Render(label)
	case triage.UrgencyNormal:
		return normalBadge.Render(label)
	default:
		return unknownBadge.Render(label)
	}
}

// Markdown is the archived form of a report.
func Markdown(r *triage.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("# VaidyaMitra analysis report\n\n")
	fmt.Fprintf(&b, "- **Urgency:** %s\n", r.Urgency)
	fmt.Fprintf(&b, "- **Mode:** %s\n", r.Mode)
	if r.Model != "" {
		fmt.Fprintf(&b, "- **Model:** %s\n", r.Model)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "- **Created:** %s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(r.Analysis))
	b.WriteString("\n\n---\n\n> ")
	b.WriteString(prompt.Disclaimer)
	b.WriteString("\n")
	return b.String()
}

// Terminal renders the badge, the report and the notice. style is a glamour
// standard style ("dark", "light", "notty"); plain skips markdown rendering.
func Terminal(r *triage.AnalysisResult, style string, plain bool) (string, error) {
	body := strings.TrimSpace(r.Analysis)
	if !plain {
		if style == "" {
			style = "dark"
		}
		tr, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(100))
		if err != nil {
			return "", err
		}
		out, err := tr.Render(body)
		if err != nil {
			return "", err
		}
		body = strings.TrimRight(out, "\n")
	}
	var b strings.Builder
	b.WriteString(Badge(r.Urgency))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(noticeStyle.Render(Notice))
	b.WriteString("\n")
	return b.String(), nil
}

// ErrorHint converts a failure into a user-correctable message.
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, triage.ErrMissingCredential):
		return "Please add an API key first (XAI_API_KEY in settings, or pass it manually)."
	case errors.Is(err, triage.ErrEmptySymptoms):
		return "Please type your symptoms in the box."
	case errors.Is(err, ai.ErrQuotaExceeded):
		return "The AI provider quota is exhausted. Check your credits and try again later."
	case openai.StatusCode(err) == http.StatusBadRequest:
		return "API error: model not found or key invalid. Please check your credits and key."
	case openai.StatusCode(err) == http.StatusUnauthorized:
		return "API error: the provider rejected the API key."
	default:
		return "Error: " + err.Error()
	}
}
