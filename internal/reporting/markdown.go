package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// MarkdownRenderer writes a human-readable run report.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Extension() string { return "md" }

func (r *MarkdownRenderer) Render(w io.Writer, results *schemas.TestResults) error {
	var b strings.Builder
	verdict := results.ComputeVerdict()

	fmt.Fprintf(&b, "# Test Report: %s\n\n", results.TestSuiteName)
	fmt.Fprintf(&b, "**Verdict:** %s %s (confidence %.1f%%)\n\n", statusMarker(verdict.Decision), upperStatus(verdict.Decision), verdict.Confidence)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run ID | `%s` |\n", results.RunID)
	if results.BaseURL != "" {
		fmt.Fprintf(&b, "| Base URL | %s |\n", results.BaseURL)
	}
	fmt.Fprintf(&b, "| Model | %s |\n", results.AIModel)
	fmt.Fprintf(&b, "| Started | %s |\n", results.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "| Duration | %dms |\n", results.DurationMs)
	fmt.Fprintf(&b, "| Steps | %d total, %d passed, %d failed, %d warnings |\n\n",
		results.TotalSteps(), results.PassedSteps(), results.FailedSteps(), results.WarningSteps())

	if critical := results.CountIssues(schemas.SeverityCritical); critical > 0 {
		fmt.Fprintf(&b, "> %d critical issue(s) found.\n\n", critical)
	}

	b.WriteString("## Steps\n\n")
	for _, step := range results.StepResults {
		r.renderStep(&b, step)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (r *MarkdownRenderer) renderStep(b *strings.Builder, step schemas.StepResult) {
	fmt.Fprintf(b, "### %s Step %d: %s\n\n", statusMarker(step.Status), step.StepNumber, step.Description)
	fmt.Fprintf(b, "Status: **%s** (%dms)\n\n", upperStatus(step.Status), step.DurationMs)

	if step.PageState != nil {
		fmt.Fprintf(b, "Page: [%s](%s)\n\n", orDash(step.PageState.Title), step.PageState.URL)
	}

	for _, actionErr := range step.ActionErrors {
		fmt.Fprintf(b, "- ⚠ Action failed: %s\n", actionErr)
	}
	if len(step.ActionErrors) > 0 {
		b.WriteString("\n")
	}

	for _, vr := range step.Verifications {
		marker := "✓"
		if !vr.Passed {
			marker = "✗"
		}
		fmt.Fprintf(b, "- %s %s (confidence %.0f%%)", marker, vr.Requirement, vr.Confidence)
		if vr.AIReasoning != "" {
			fmt.Fprintf(b, ": %s", vr.AIReasoning)
		}
		b.WriteString("\n")
	}
	if len(step.Verifications) > 0 {
		b.WriteString("\n")
	}

	if len(step.Issues) > 0 {
		b.WriteString("Issues:\n\n")
		for _, issue := range step.Issues {
			fmt.Fprintf(b, "- **%s**: %s", strings.ToUpper(string(issue.Severity)), issue.Description)
			if issue.Element != "" {
				fmt.Fprintf(b, " (`%s`)", issue.Element)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func statusMarker(status schemas.StepStatus) string {
	switch status {
	case schemas.StatusPassed:
		return "✅"
	case schemas.StatusFailed:
		return "❌"
	case schemas.StatusWarning:
		return "⚠️"
	case schemas.StatusSkipped:
		return "⏭"
	default:
		return "⏳"
	}
}

func upperStatus(status schemas.StepStatus) string {
	return strings.ToUpper(string(status))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
