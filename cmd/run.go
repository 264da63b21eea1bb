package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/browser"
	"github.com/xkilldash9x/veracity-cli/internal/executor"
	"github.com/xkilldash9x/veracity-cli/internal/llm"
	"github.com/xkilldash9x/veracity-cli/internal/observability"
	"github.com/xkilldash9x/veracity-cli/internal/parser"
	"github.com/xkilldash9x/veracity-cli/internal/reporting"
)

const browserShutdownTimeout = 20 * time.Second

var runCmd = &cobra.Command{
	Use:   "run <requirements-file>",
	Short: "Parse a requirements document and execute it against the target site",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuite,
}

func init() {
	// Flag defaults mirror config.SetDefaults; bound flags feed their
	// default back into viper when unset.
	runCmd.Flags().String("base-url", "", "base URL the suite runs against")
	runCmd.Flags().Bool("stop-on-failure", false, "abort the run after the first failed step")
	runCmd.Flags().Bool("headless", true, "run the browser headless")
	runCmd.Flags().String("model", "gpt-4o", "AI model used for verification")
	runCmd.Flags().String("output-dir", "reports", "directory reports are written to")
	runCmd.Flags().StringSlice("format", []string{"markdown"}, "report formats (markdown, json)")

	_ = viper.BindPFlag("testing.base_url", runCmd.Flags().Lookup("base-url"))
	_ = viper.BindPFlag("testing.stop_on_failure", runCmd.Flags().Lookup("stop-on-failure"))
	_ = viper.BindPFlag("browser.headless", runCmd.Flags().Lookup("headless"))
	_ = viper.BindPFlag("ai.model", runCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("reporting.output_dir", runCmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("reporting.formats", runCmd.Flags().Lookup("format"))

	rootCmd.AddCommand(runCmd)
}

func runSuite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	suite, err := parser.NewParser(logger).ParseFile(args[0])
	if err != nil {
		return fmt.Errorf("parsing requirements: %w", err)
	}
	logger.Info("Parsed test suite",
		zap.String("suite", suite.Name),
		zap.Int("steps", len(suite.Steps)))

	client, err := llm.NewClient(cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("creating AI client: %w", err)
	}
	defer client.Close()
	verifier := llm.NewVerifier(client, cfg.AI, logger)

	manager := browser.NewManager(cfg.Browser, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), browserShutdownTimeout)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Browser shutdown failed", zap.Error(err))
		}
	}()

	steps := executor.NewStepExecutor(logger, executor.NewResolver(logger), verifier, cfg.AI.VerifyConcurrency)
	suites := executor.NewSuiteExecutor(logger, manager, steps, cfg.Testing, verifier.Model())

	results, err := suites.Execute(ctx, suite)
	if err != nil {
		return err
	}

	paths, reportErr := reporting.WriteReports(results, cfg.Reporting, logger)
	if reportErr != nil {
		logger.Warn("Some reports could not be written", zap.Error(reportErr))
	}

	printSummary(cmd.OutOrStdout(), results, paths)

	if verdict := results.ComputeVerdict(); verdict.Decision == schemas.StatusFailed {
		return fmt.Errorf("test run failed: %d of %d steps failed", results.FailedSteps(), results.TotalSteps())
	}
	return nil
}

func printSummary(w io.Writer, results *schemas.TestResults, reportPaths []string) {
	verdict := results.ComputeVerdict()

	header := color.New(color.Bold)
	header.Fprintf(w, "\n%s\n", results.TestSuiteName)

	for _, step := range results.StepResults {
		line := fmt.Sprintf("  step %d: %-7s  %s", step.StepNumber, step.Status, step.Description)
		switch step.Status {
		case schemas.StatusPassed:
			color.New(color.FgGreen).Fprintln(w, line)
		case schemas.StatusFailed:
			color.New(color.FgRed).Fprintln(w, line)
		case schemas.StatusWarning:
			color.New(color.FgYellow).Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}

	fmt.Fprintf(w, "\n  %d passed, %d failed, %d warnings",
		results.PassedSteps(), results.FailedSteps(), results.WarningSteps())
	fmt.Fprintf(w, "  (avg confidence %.1f%%, %dms)\n", results.AverageConfidence(), results.DurationMs)

	verdictColor := color.New(color.FgGreen, color.Bold)
	switch verdict.Decision {
	case schemas.StatusFailed:
		verdictColor = color.New(color.FgRed, color.Bold)
	case schemas.StatusWarning, schemas.StatusPending:
		verdictColor = color.New(color.FgYellow, color.Bold)
	}
	verdictColor.Fprintf(w, "  verdict: %s\n", verdict.Decision)

	for _, p := range reportPaths {
		fmt.Fprintf(w, "  report: %s\n", p)
	}
	fmt.Fprintln(w)
}
