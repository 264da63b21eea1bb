package schemas

import (
	"time"
)

// -- Execution Results --

// StepResult records the full outcome of executing one TestStep.
type StepResult struct {
	StepNumber    int                  `json:"step_number"`
	Description   string               `json:"description"`
	Status        StepStatus           `json:"status"`
	Verifications []VerificationResult `json:"verifications,omitempty"`
	ActionErrors  []string             `json:"action_errors,omitempty"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	PageState     *PageState           `json:"page_state,omitempty"`
	Issues        []Issue              `json:"issues,omitempty"`
	DurationMs    int64                `json:"duration_ms"`
}

// Failed reports whether the step result counts as a failure.
func (r StepResult) Failed() bool {
	return r.Status == StatusFailed
}

// Verdict is the suite-level judgement derived from all step results.
type Verdict struct {
	Decision   StepStatus `json:"decision"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// TestResults aggregates the execution of an entire suite.
type TestResults struct {
	RunID         string       `json:"run_id"`
	TestSuiteName string       `json:"test_suite_name"`
	BaseURL       string       `json:"base_url,omitempty"`
	AIModel       string       `json:"ai_model,omitempty"`
	StepResults   []StepResult `json:"step_results"`
	StartedAt     time.Time    `json:"started_at"`
	DurationMs    int64        `json:"duration_ms"`
}

// TotalSteps returns the number of executed (or skipped) steps.
func (r *TestResults) TotalSteps() int { return len(r.StepResults) }

// CountByStatus returns how many steps finished with the given status.
func (r *TestResults) CountByStatus(status StepStatus) int {
	n := 0
	for _, sr := range r.StepResults {
		if sr.Status == status {
			n++
		}
	}
	return n
}

// PassedSteps returns the count of passed steps.
func (r *TestResults) PassedSteps() int { return r.CountByStatus(StatusPassed) }

// FailedSteps returns the count of failed steps.
func (r *TestResults) FailedSteps() int { return r.CountByStatus(StatusFailed) }

// WarningSteps returns the count of steps that passed with warnings.
func (r *TestResults) WarningSteps() int { return r.CountByStatus(StatusWarning) }

// CountFailures returns the number of failed verifications across all steps,
// optionally restricted to requirements of one severity. An empty severity
// counts every failure.
func (r *TestResults) CountFailures(severity Severity) int {
	n := 0
	for _, sr := range r.StepResults {
		for _, vr := range sr.Verifications {
			if vr.Passed {
				continue
			}
			if severity == "" || hasIssueSeverity(vr.Issues, severity) {
				n++
			}
		}
	}
	return n
}

// CountIssues returns the number of reported issues across all steps,
// optionally restricted to one severity.
func (r *TestResults) CountIssues(severity Severity) int {
	n := 0
	for _, sr := range r.StepResults {
		for _, issue := range sr.Issues {
			if severity == "" || issue.Severity == severity {
				n++
			}
		}
	}
	return n
}

// AverageConfidence returns the mean confidence over every verification
// result, or 0 when none exist.
func (r *TestResults) AverageConfidence() float64 {
	sum, n := 0.0, 0
	for _, sr := range r.StepResults {
		for _, vr := range sr.Verifications {
			sum += vr.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ComputeVerdict derives the suite verdict: any failed step fails the suite,
// any warning step downgrades a pass to a warning.
func (r *TestResults) ComputeVerdict() Verdict {
	decision := StatusPassed
	switch {
	case r.FailedSteps() > 0:
		decision = StatusFailed
	case r.WarningSteps() > 0:
		decision = StatusWarning
	case r.TotalSteps() == 0:
		decision = StatusPending
	}
	return Verdict{
		Decision:   decision,
		Confidence: r.AverageConfidence(),
	}
}

func hasIssueSeverity(issues []Issue, severity Severity) bool {
	for _, issue := range issues {
		if issue.Severity == severity {
			return true
		}
	}
	return false
}
