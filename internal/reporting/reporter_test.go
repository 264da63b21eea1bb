package reporting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

func sampleRun() *schemas.TestResults {
	return &schemas.TestResults{
		RunID:         "0f4b2a1c-9d8e-4f3a-b2c1-000000000000",
		TestSuiteName: "Login Flow",
		BaseURL:       "https://shop.example.com",
		AIModel:       "gpt-4o",
		StartedAt:     time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		DurationMs:    4200,
		StepResults: []schemas.StepResult{
			{
				StepNumber:  1,
				Description: "Open the login page",
				Status:      schemas.StatusPassed,
				Verifications: []schemas.VerificationResult{
					{Requirement: "login form is visible", Passed: true, Confidence: 95, AIReasoning: "form present"},
				},
				DurationMs: 1800,
			},
			{
				StepNumber:   2,
				Description:  "Submit invalid credentials",
				Status:       schemas.StatusFailed,
				ActionErrors: []string{`could not click "Submit": tried 8 selectors`},
				Issues: []schemas.Issue{
					{Severity: schemas.SeverityCritical, Description: "submit button missing", StepNumber: 2, Element: "#submit"},
				},
				DurationMs: 2400,
			},
		},
	}
}

// -- Renderer Factory --

func TestNew(t *testing.T) {
	for _, format := range []string{"markdown", "md", "json", "JSON"} {
		r, err := New(format)
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}

	_, err := New("pdf")
	assert.Error(t, err)
}

// -- Markdown --

func TestMarkdownRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownRenderer{}).Render(&buf, sampleRun()))
	out := buf.String()

	assert.Contains(t, out, "# Test Report: Login Flow")
	// Statuses render uppercase, both in the verdict line and per step.
	assert.Contains(t, out, "**Verdict:** ❌ FAILED")
	assert.Contains(t, out, "Status: **PASSED**")
	assert.Contains(t, out, "Status: **FAILED**")
	assert.Contains(t, out, "Step 1: Open the login page")
	assert.Contains(t, out, "login form is visible")
	assert.Contains(t, out, "could not click")
	assert.Contains(t, out, "**CRITICAL**: submit button missing")
	assert.Contains(t, out, "2 total, 1 passed, 1 failed, 0 warnings")
}

// -- JSON --

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONRenderer{}).Render(&buf, sampleRun()))

	var report struct {
		Verdict schemas.Verdict `json:"verdict"`
		Summary jsonSummary     `json:"summary"`
	}
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &report))

	assert.Equal(t, schemas.StatusFailed, report.Verdict.Decision)
	assert.Equal(t, 2, report.Summary.TotalSteps)
	assert.Equal(t, 1, report.Summary.CriticalIssues)
}

// -- File Output --

func TestWriteReports(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ReportingConfig{
		OutputDir: dir,
		Formats:   []string{"markdown", "json"},
	}

	paths, err := WriteReports(sampleRun(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, filepath.Join(dir, "login_flow_0f4b2a1c.md"), paths[0])
	assert.Equal(t, filepath.Join(dir, "login_flow_0f4b2a1c.json"), paths[1])

	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}

func TestWriteReports_BadFormatStillWritesOthers(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ReportingConfig{
		OutputDir: dir,
		Formats:   []string{"pdf", "json"},
	}

	paths, err := WriteReports(sampleRun(), cfg, zap.NewNop())
	assert.Error(t, err)
	assert.Len(t, paths, 1)
}
