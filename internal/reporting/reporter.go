// Package reporting renders finished test runs to files in the configured
// formats.
package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

// Renderer writes a test run in one output format.
type Renderer interface {
	Render(w io.Writer, results *schemas.TestResults) error
	// Extension is the file extension for this format, without the dot.
	Extension() string
}

// New creates a renderer for the named format.
func New(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q (supported: markdown, json)", format)
	}
}

// WriteReports renders the results in every configured format and returns
// the paths written. A failure in one format does not block the others.
func WriteReports(results *schemas.TestResults, cfg config.ReportingConfig, logger *zap.Logger) ([]string, error) {
	log := logger.Named("reporting")

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory %s: %w", cfg.OutputDir, err)
	}

	var (
		paths   []string
		lastErr error
	)
	for _, format := range cfg.Formats {
		renderer, err := New(format)
		if err != nil {
			log.Error("Skipping report format", zap.String("format", format), zap.Error(err))
			lastErr = err
			continue
		}

		path := filepath.Join(cfg.OutputDir, reportFileName(results, renderer.Extension()))
		if err := renderToFile(renderer, path, results); err != nil {
			log.Error("Report rendering failed", zap.String("path", path), zap.Error(err))
			lastErr = err
			continue
		}

		log.Info("Report written", zap.String("path", path), zap.String("format", format))
		paths = append(paths, path)
	}
	return paths, lastErr
}

func renderToFile(renderer Renderer, path string, results *schemas.TestResults) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := renderer.Render(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// reportFileName derives a stable, filesystem-safe name from the suite name
// and run ID.
func reportFileName(results *schemas.TestResults, ext string) string {
	slug := strings.ToLower(results.TestSuiteName)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "test_run"
	}

	runID := results.RunID
	if len(runID) > 8 {
		runID = runID[:8]
	}
	return fmt.Sprintf("%s_%s.%s", slug, runID, ext)
}
