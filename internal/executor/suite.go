package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// SuiteExecutor runs a whole test suite against a fresh browser page.
// Teardown of the page is guaranteed regardless of how execution exits.
type SuiteExecutor struct {
	logger  *zap.Logger
	browser schemas.BrowserManager
	steps   *StepExecutor
	testing config.TestingConfig
	model   string
}

// NewSuiteExecutor creates a suite executor. model is recorded on results
// for attribution.
func NewSuiteExecutor(logger *zap.Logger, browser schemas.BrowserManager, steps *StepExecutor, testing config.TestingConfig, model string) *SuiteExecutor {
	return &SuiteExecutor{
		logger:  logger.Named("suite_executor"),
		browser: browser,
		steps:   steps,
		testing: testing,
		model:   model,
	}
}

// Execute runs the suite and returns its results. Only browser session
// acquisition failure propagates as an error; everything that happens after
// a page exists is captured in TestResults.
func (e *SuiteExecutor) Execute(ctx context.Context, suite *schemas.TestSuite) (*schemas.TestResults, error) {
	start := time.Now()
	e.logger.Info("Starting test suite",
		zap.String("suite", suite.Name),
		zap.Int("steps", len(suite.Steps)))

	page, err := e.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring browser session: %w", err)
	}
	defer func() {
		// Teardown failures are logged, never allowed to mask the result.
		if cerr := page.Close(); cerr != nil {
			e.logger.Error("Browser session teardown failed", zap.Error(cerr))
		}
	}()

	results := &schemas.TestResults{
		RunID:         uuid.NewString(),
		TestSuiteName: suite.Name,
		BaseURL:       e.testing.BaseURL,
		AIModel:       e.model,
		StartedAt:     start,
	}

	e.navigateToBase(ctx, page)

	for _, step := range suite.Steps {
		if ctx.Err() != nil {
			e.logger.Warn("Suite execution cancelled",
				zap.Int("next_step", step.StepNumber))
			break
		}

		stepResult := e.steps.Execute(ctx, page, step)
		results.StepResults = append(results.StepResults, stepResult)

		if stepResult.Failed() && e.testing.StopOnFailure {
			e.logger.Warn("Stopping execution after failed step",
				zap.Int("step", step.StepNumber))
			break
		}
	}

	results.DurationMs = time.Since(start).Milliseconds()
	e.logger.Info("Test suite finished",
		zap.String("suite", suite.Name),
		zap.Int("executed", results.TotalSteps()),
		zap.Int("failed", results.FailedSteps()),
		zap.Int64("duration_ms", results.DurationMs))
	return results, nil
}

// navigateToBase performs the optional initial navigation. Failures degrade
// to whatever page state exists; they never abort the run.
func (e *SuiteExecutor) navigateToBase(ctx context.Context, page schemas.Page) {
	baseURL := e.testing.BaseURL
	if baseURL == "" {
		return
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		e.logger.Warn("Base URL has no scheme, assuming http", zap.String("base_url", baseURL))
		baseURL = "http://" + baseURL
	}

	e.logger.Info("Navigating to base URL", zap.String("url", baseURL))
	if err := page.Navigate(ctx, baseURL); err != nil {
		if errors.Is(err, schemas.ErrNavigationTimeout) {
			e.logger.Warn("Base URL navigation timed out, continuing",
				zap.String("url", baseURL))
			return
		}
		e.logger.Error("Base URL navigation failed, continuing with current page",
			zap.String("url", baseURL), zap.Error(err))
	}
}
