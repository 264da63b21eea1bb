package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
	"github.com/xkilldash9x/veracity-cli/internal/llmutil"
)

const verifierSystemPrompt = `You are a meticulous QA engineer reviewing a web page against a requirement.
You receive a screenshot of the page plus its URL, title, and simplified HTML.
Judge only what the evidence shows. Respond with a single JSON object:
{
  "passed": boolean, whether the requirement is satisfied,
  "confidence": number from 0 to 100,
  "reasoning": short explanation of the judgement,
  "issues": [{"severity": "critical"|"major"|"minor"|"info", "description": string, "element": string}]
}
Report issues only for defects you can actually see. An empty issues array is a valid answer.`

// Verifier judges requirements against captured page evidence using a
// vision-capable model.
type Verifier struct {
	client schemas.LLMClient
	cfg    config.AIConfig
	logger *zap.Logger
}

// NewVerifier creates a verifier on top of a generation client.
func NewVerifier(client schemas.LLMClient, cfg config.AIConfig, logger *zap.Logger) *Verifier {
	return &Verifier{
		client: client,
		cfg:    cfg,
		logger: logger.Named("verifier"),
	}
}

// Model reports the configured model name for result attribution.
func (v *Verifier) Model() string {
	return v.cfg.Model
}

type verdictPayload struct {
	Passed     bool           `json:"passed"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	Issues     []issuePayload `json:"issues"`
}

type issuePayload struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Element     string `json:"element,omitempty"`
}

// Verify asks the model whether the requirement holds on the captured page.
func (v *Verifier) Verify(ctx context.Context, requirement string, ev schemas.Evidence) (schemas.VerificationResult, error) {
	start := time.Now()

	raw, err := v.client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: verifierSystemPrompt,
		UserPrompt:   buildUserPrompt(requirement, ev, v.cfg.MaxHTMLBytes),
		Screenshot:   ev.Screenshot,
		ForceJSON:    true,
		Temperature:  v.cfg.Temperature,
	})
	if err != nil {
		return schemas.VerificationResult{}, fmt.Errorf("generating verdict for %q: %w", requirement, err)
	}

	payload, err := llmutil.ParseJSONResponse[verdictPayload](raw)
	if err != nil {
		return schemas.VerificationResult{}, fmt.Errorf("parsing verdict for %q: %w", requirement, err)
	}

	result := schemas.VerificationResult{
		Requirement: requirement,
		Passed:      payload.Passed,
		Confidence:  clampConfidence(payload.Confidence),
		AIReasoning: payload.Reasoning,
		Issues:      mapIssues(payload.Issues),
		DurationMs:  time.Since(start).Milliseconds(),
	}

	v.logger.Debug("Verification complete",
		zap.String("requirement", requirement),
		zap.Bool("passed", result.Passed),
		zap.Float64("confidence", result.Confidence),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

func buildUserPrompt(requirement string, ev schemas.Evidence, maxHTMLBytes int) string {
	var b strings.Builder
	b.WriteString("Requirement: ")
	b.WriteString(requirement)
	b.WriteString("\n\nPage URL: ")
	b.WriteString(ev.URL)
	b.WriteString("\nPage title: ")
	b.WriteString(ev.Title)
	if len(ev.Screenshot) > 0 {
		b.WriteString("\n\nA screenshot of the page is attached.")
	}
	if ev.HTML != "" {
		b.WriteString("\n\nSimplified page HTML:\n")
		b.WriteString(CompactHTML(ev.HTML, maxHTMLBytes))
	}
	return b.String()
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

func mapIssues(payload []issuePayload) []schemas.Issue {
	if len(payload) == 0 {
		return nil
	}
	issues := make([]schemas.Issue, 0, len(payload))
	for _, p := range payload {
		if strings.TrimSpace(p.Description) == "" {
			continue
		}
		issues = append(issues, schemas.Issue{
			Severity:    parseSeverity(p.Severity),
			Description: p.Description,
			Element:     p.Element,
		})
	}
	return issues
}

// parseSeverity normalizes model-reported severities, defaulting to major
// for anything unrecognized.
func parseSeverity(s string) schemas.Severity {
	switch schemas.Severity(strings.ToLower(strings.TrimSpace(s))) {
	case schemas.SeverityCritical:
		return schemas.SeverityCritical
	case schemas.SeverityMajor:
		return schemas.SeverityMajor
	case schemas.SeverityMinor:
		return schemas.SeverityMinor
	case schemas.SeverityInfo:
		return schemas.SeverityInfo
	default:
		return schemas.SeverityMajor
	}
}
