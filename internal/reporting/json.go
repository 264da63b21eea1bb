package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonReport is the machine-readable envelope: the raw results plus the
// computed verdict and summary counters.
type jsonReport struct {
	Verdict schemas.Verdict      `json:"verdict"`
	Summary jsonSummary          `json:"summary"`
	Results *schemas.TestResults `json:"results"`
}

type jsonSummary struct {
	TotalSteps     int     `json:"total_steps"`
	Passed         int     `json:"passed"`
	Failed         int     `json:"failed"`
	Warnings       int     `json:"warnings"`
	CriticalIssues int     `json:"critical_issues"`
	AvgConfidence  float64 `json:"avg_confidence"`
}

// JSONRenderer writes a machine-readable run report.
type JSONRenderer struct{}

func (r *JSONRenderer) Extension() string { return "json" }

func (r *JSONRenderer) Render(w io.Writer, results *schemas.TestResults) error {
	report := jsonReport{
		Verdict: results.ComputeVerdict(),
		Summary: jsonSummary{
			TotalSteps:     results.TotalSteps(),
			Passed:         results.PassedSteps(),
			Failed:         results.FailedSteps(),
			Warnings:       results.WarningSteps(),
			CriticalIssues: results.CountIssues(schemas.SeverityCritical),
			AvgConfidence:  results.AverageConfidence(),
		},
		Results: results,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding JSON report: %w", err)
	}
	return nil
}
