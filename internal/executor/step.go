package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// StepExecutor runs one test step: actions in order, a single page state
// capture, then AI verification of every requirement. Execute never returns
// an error; all failures are folded into the StepResult.
type StepExecutor struct {
	logger      *zap.Logger
	resolver    *Resolver
	verifier    schemas.Verifier
	concurrency int
}

// NewStepExecutor creates a step executor. concurrency bounds the number of
// in-flight verification calls per step; 1 preserves strict source order.
func NewStepExecutor(logger *zap.Logger, resolver *Resolver, verifier schemas.Verifier, concurrency int) *StepExecutor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &StepExecutor{
		logger:      logger.Named("step_executor"),
		resolver:    resolver,
		verifier:    verifier,
		concurrency: concurrency,
	}
}

// Execute runs the step against the page and returns its result.
func (e *StepExecutor) Execute(ctx context.Context, page schemas.Page, step schemas.TestStep) schemas.StepResult {
	start := time.Now()
	e.logger.Info("Executing step",
		zap.Int("step", step.StepNumber),
		zap.String("description", step.Description))

	result := schemas.StepResult{
		StepNumber:  step.StepNumber,
		Description: step.Description,
		Status:      schemas.StatusPending,
	}

	actionsOK := e.runActions(ctx, page, step, &result)

	// One snapshot serves every verification, taken after the last action
	// or after the failing one.
	state, err := capturePageState(ctx, page)
	if err != nil {
		e.logger.Warn("Failed to capture page state",
			zap.Int("step", step.StepNumber), zap.Error(err))
	} else {
		result.PageState = state
	}

	if !actionsOK {
		result.Status = schemas.StatusFailed
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	result.Verifications = e.verifyAll(ctx, step.Verifications, state)
	result.Status = aggregateStatus(result.Verifications)
	result.Issues = collectIssues(step.StepNumber, result.Verifications)
	result.DurationMs = time.Since(start).Milliseconds()

	e.logger.Info("Step finished",
		zap.Int("step", step.StepNumber),
		zap.String("status", string(result.Status)),
		zap.Int64("duration_ms", result.DurationMs))
	return result
}

// runActions executes the step's actions sequentially. The first failure
// aborts the remainder and is recorded on the result.
func (e *StepExecutor) runActions(ctx context.Context, page schemas.Page, step schemas.TestStep, result *schemas.StepResult) bool {
	for _, action := range step.Actions {
		if err := e.resolver.Execute(ctx, page, action); err != nil {
			e.logger.Error("Action failed",
				zap.Int("step", step.StepNumber),
				zap.String("type", string(action.Type)),
				zap.String("target", action.Target),
				zap.Error(err))
			result.ActionErrors = append(result.ActionErrors, err.Error())
			result.ErrorMessage = err.Error()
			return false
		}
		if action.WaitAfterMs > 0 {
			if err := page.Sleep(ctx, time.Duration(action.WaitAfterMs)*time.Millisecond); err != nil {
				result.ErrorMessage = err.Error()
				return false
			}
		}
	}
	return true
}

// verifyAll judges every requirement against the captured state. A verifier
// error never aborts the step; it becomes a synthetic failed result for
// that requirement only. Results keep source order regardless of
// concurrency.
func (e *StepExecutor) verifyAll(ctx context.Context, verifications []schemas.Verification, state *schemas.PageState) []schemas.VerificationResult {
	if len(verifications) == 0 {
		return nil
	}

	ev := schemas.Evidence{}
	if state != nil {
		ev = schemas.Evidence{
			Screenshot: state.Screenshot,
			HTML:       state.HTML,
			URL:        state.URL,
			Title:      state.Title,
		}
	}

	results := make([]schemas.VerificationResult, len(verifications))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, v := range verifications {
		i, v := i, v
		g.Go(func() error {
			vr, err := e.verifier.Verify(gctx, v.Requirement, ev)
			if err != nil {
				e.logger.Error("Verification capability failed",
					zap.String("requirement", v.Requirement),
					zap.Error(err))
				vr = schemas.VerificationResult{
					Requirement: v.Requirement,
					Passed:      false,
					Confidence:  0,
					AIReasoning: fmt.Sprintf("verification error: %v", err),
				}
			}
			results[i] = vr
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// warningConfidenceThreshold is the confidence floor below which a passing
// verification still flags the step.
const warningConfidenceThreshold = 70.0

// aggregateStatus folds verification results into a step status. A single
// failure dominates; warnings only arise among otherwise passing results.
func aggregateStatus(results []schemas.VerificationResult) schemas.StepStatus {
	if len(results) == 0 {
		return schemas.StatusPending
	}

	for _, vr := range results {
		if !vr.Passed {
			return schemas.StatusFailed
		}
	}

	for _, vr := range results {
		if vr.Confidence < warningConfidenceThreshold {
			return schemas.StatusWarning
		}
		for _, issue := range vr.Issues {
			if issue.Severity == schemas.SeverityMinor {
				return schemas.StatusWarning
			}
		}
	}

	return schemas.StatusPassed
}

// collectIssues surfaces issues from failed verifications only; a passing
// verification's issues are not actionable defects.
func collectIssues(stepNumber int, results []schemas.VerificationResult) []schemas.Issue {
	var issues []schemas.Issue
	for _, vr := range results {
		if vr.Passed {
			continue
		}
		for _, issue := range vr.Issues {
			if issue.StepNumber == 0 {
				issue.StepNumber = stepNumber
			}
			issues = append(issues, issue)
		}
	}
	return issues
}

// capturePageState snapshots the page evidence used by verification.
func capturePageState(ctx context.Context, page schemas.Page) (*schemas.PageState, error) {
	url, err := page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page url: %w", err)
	}
	title, err := page.Title(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page title: %w", err)
	}
	screenshot, err := page.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	html, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page content: %w", err)
	}
	return &schemas.PageState{
		URL:        url,
		Title:      title,
		Screenshot: screenshot,
		HTML:       html,
		CapturedAt: time.Now(),
	}, nil
}
