package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

func newTestSuiteExecutor(browser schemas.BrowserManager, verifier schemas.Verifier, testing config.TestingConfig) *SuiteExecutor {
	logger := zap.NewNop()
	steps := NewStepExecutor(logger, NewResolver(logger), verifier, 1)
	return NewSuiteExecutor(logger, browser, steps, testing, "gpt-4o")
}

func passingVerifier() *MockVerifier {
	verifier := new(MockVerifier)
	verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(schemas.VerificationResult{
		Requirement: "ok",
		Passed:      true,
		Confidence:  90,
	}, nil)
	return verifier
}

func failingVerifier() *MockVerifier {
	verifier := new(MockVerifier)
	verifier.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(schemas.VerificationResult{
		Requirement: "broken",
		Passed:      false,
		Confidence:  80,
	}, nil)
	return verifier
}

func twoStepSuite(t *testing.T) *schemas.TestSuite {
	t.Helper()
	suite, err := schemas.NewTestSuite("Checkout Flow", []schemas.TestStep{
		stepWithVerifications(1, "page loaded"),
		stepWithVerifications(2, "cart updated"),
	})
	require.NoError(t, err)
	return suite
}

// -- Suite Execution --

func TestSuiteExecute_RunsAllSteps(t *testing.T) {
	page := new(MockPage)
	page.expectStateCapture()
	page.On("Navigate", mock.Anything, "https://shop.example.com").Return(nil).Once()
	page.On("Close").Return(nil).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	exec := newTestSuiteExecutor(browser, passingVerifier(), config.TestingConfig{
		BaseURL: "https://shop.example.com",
	})

	results, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.NoError(t, err)

	assert.NotEmpty(t, results.RunID)
	assert.Equal(t, "Checkout Flow", results.TestSuiteName)
	assert.Equal(t, "https://shop.example.com", results.BaseURL)
	assert.Equal(t, "gpt-4o", results.AIModel)
	require.Len(t, results.StepResults, 2)
	assert.Equal(t, schemas.StatusPassed, results.StepResults[0].Status)
	assert.Equal(t, schemas.StatusPassed, results.StepResults[1].Status)
	page.AssertExpectations(t)
}

func TestSuiteExecute_StopOnFailureTruncates(t *testing.T) {
	page := new(MockPage)
	page.expectStateCapture()
	page.On("Close").Return(nil).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	exec := newTestSuiteExecutor(browser, failingVerifier(), config.TestingConfig{
		StopOnFailure: true,
	})

	results, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.NoError(t, err)

	require.Len(t, results.StepResults, 1)
	assert.Equal(t, schemas.StatusFailed, results.StepResults[0].Status)
	page.AssertExpectations(t)
}

func TestSuiteExecute_ContinuesPastFailureByDefault(t *testing.T) {
	page := new(MockPage)
	page.expectStateCapture()
	page.On("Close").Return(nil).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	exec := newTestSuiteExecutor(browser, failingVerifier(), config.TestingConfig{})

	results, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.NoError(t, err)

	assert.Len(t, results.StepResults, 2)
	assert.Equal(t, 2, results.FailedSteps())
}

func TestSuiteExecute_SessionAcquisitionErrorPropagates(t *testing.T) {
	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(nil, errors.New("chrome not found"))

	exec := newTestSuiteExecutor(browser, passingVerifier(), config.TestingConfig{})

	results, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "acquiring browser session")
}

func TestSuiteExecute_TeardownErrorDoesNotMaskResults(t *testing.T) {
	page := new(MockPage)
	page.expectStateCapture()
	page.On("Close").Return(errors.New("session already gone")).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	exec := newTestSuiteExecutor(browser, passingVerifier(), config.TestingConfig{})

	results, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.NoError(t, err)
	assert.Len(t, results.StepResults, 2)
	page.AssertExpectations(t)
}

// -- Base Navigation --

func TestSuiteExecute_BaseNavigationTimeoutNonFatal(t *testing.T) {
	page := new(MockPage)
	page.expectStateCapture()
	page.On("Navigate", mock.Anything, mock.Anything).Return(schemas.ErrNavigationTimeout).Once()
	page.On("Close").Return(nil).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	exec := newTestSuiteExecutor(browser, passingVerifier(), config.TestingConfig{
		BaseURL: "https://slow.example.com",
	})

	results, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.NoError(t, err)
	// The run still yields a complete set of step results.
	assert.Len(t, results.StepResults, 2)
}

func TestSuiteExecute_SchemelessBaseURLGetsHTTP(t *testing.T) {
	page := new(MockPage)
	page.expectStateCapture()
	page.On("Navigate", mock.Anything, "http://shop.example.com").Return(nil).Once()
	page.On("Close").Return(nil).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	exec := newTestSuiteExecutor(browser, passingVerifier(), config.TestingConfig{
		BaseURL: "shop.example.com",
	})

	_, err := exec.Execute(context.Background(), twoStepSuite(t))
	require.NoError(t, err)
	page.AssertExpectations(t)
}

func TestSuiteExecute_CancelledContextStopsBeforeSteps(t *testing.T) {
	page := new(MockPage)
	page.On("Close").Return(nil).Once()

	browser := new(MockBrowserManager)
	browser.On("NewPage", mock.Anything).Return(page, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := newTestSuiteExecutor(browser, passingVerifier(), config.TestingConfig{})

	results, err := exec.Execute(ctx, twoStepSuite(t))
	require.NoError(t, err)
	assert.Empty(t, results.StepResults)
	page.AssertExpectations(t)
}
