// Package parser turns natural-language requirement documents into
// structured test suites.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// ParseError is the fatal failure of parsing one requirement document.
// StepNumber is set when the failure is tied to a specific step.
type ParseError struct {
	StepNumber int
	Reason     string
	Err        error
}

func (e *ParseError) Error() string {
	if e.StepNumber > 0 {
		if e.Err != nil {
			return fmt.Sprintf("parse failed at step %d: %s: %v", e.StepNumber, e.Reason, e.Err)
		}
		return fmt.Sprintf("parse failed at step %d: %s", e.StepNumber, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("parse failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse failed: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// maxDescriptionBytes caps step descriptions; truncation never splits a
// multibyte rune.
const maxDescriptionBytes = 200

// Parser extracts TestSuites from requirement documents. It is stateless
// and safe for concurrent use.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a requirement parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("parser")}
}

// Parse parses document text into a TestSuite. Parsing is deterministic:
// the same input always yields a structurally identical suite.
func (p *Parser) Parse(content string) (*schemas.TestSuite, error) {
	return p.parse(content, "Test Suite", "")
}

// ParseFile reads and parses a requirement file. The suite name is derived
// from the file stem.
func (p *Parser) ParseFile(path string) (*schemas.TestSuite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("cannot read requirement file %q", path), Err: err}
	}
	p.logger.Info("Parsing requirement file", zap.String("path", path))
	return p.parse(string(data), suiteNameFromPath(path), path)
}

type rawStep struct {
	number int
	text   string
}

func (p *Parser) parse(content, suiteName, sourceFile string) (*schemas.TestSuite, error) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Reason: "requirement document is empty"}
	}

	globals := p.extractGlobalRequirements(content)

	raw := extractSteps(content)
	if len(raw) == 0 {
		return nil, &ParseError{Reason: "no numbered steps found; expected lines like \"1. ...\""}
	}

	steps := make([]schemas.TestStep, 0, len(raw))
	for _, rs := range raw {
		step, err := p.parseStep(rs.number, rs.text, globals)
		if err != nil {
			return nil, &ParseError{StepNumber: rs.number, Reason: "step construction failed", Err: err}
		}
		steps = append(steps, step)
	}

	suite, err := schemas.NewTestSuite(suiteName, steps)
	if err != nil {
		return nil, &ParseError{Reason: "invalid test suite", Err: err}
	}
	suite.GlobalRequirements = globals
	suite.SourceFile = sourceFile

	p.warnOnAnomalies(suite)

	p.logger.Info("Parsed requirement document",
		zap.String("suite", suite.Name),
		zap.Int("steps", len(suite.Steps)),
		zap.Int("global_requirements", len(globals)))
	return suite, nil
}

// warnOnAnomalies logs suspicious but non-fatal suite properties: numbering
// gaps, very short descriptions, and steps with nothing to do.
func (p *Parser) warnOnAnomalies(suite *schemas.TestSuite) {
	if suite.HasGaps() {
		p.logger.Warn("Test suite has missing step numbers",
			zap.String("suite", suite.Name),
			zap.Ints("missing", missingStepNumbers(suite.StepNumbers())))
	}
	for _, step := range suite.Steps {
		if len(strings.TrimSpace(step.Description)) < 3 {
			p.logger.Warn("Step has a very short description",
				zap.Int("step", step.StepNumber),
				zap.String("description", step.Description))
		}
		if len(step.Actions) == 0 && len(step.Verifications) == 0 {
			p.logger.Warn("Step has no actions or verifications",
				zap.Int("step", step.StepNumber))
		}
	}
}

func missingStepNumbers(nums []int) []int {
	if len(nums) == 0 {
		return nil
	}
	sorted := append([]int(nil), nums...)
	sort.Ints(sorted)
	present := make(map[int]bool, len(sorted))
	for _, n := range sorted {
		present[n] = true
	}
	// Numbering starts at 1, so a suite opening at step 3 is missing 1 and 2.
	var missing []int
	for n := 1; n <= sorted[len(sorted)-1]; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	return missing
}

// extractSteps segments the document at numbered step markers. Steps are
// returned sorted by number; the document need not list them in order.
func extractSteps(content string) []rawStep {
	markers := stepMarkerPattern.FindAllStringSubmatchIndex(content, -1)
	steps := make([]rawStep, 0, len(markers))
	for i, m := range markers {
		num := 0
		fmt.Sscanf(content[m[2]:m[3]], "%d", &num)
		start := m[1]
		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		steps = append(steps, rawStep{number: num, text: strings.TrimSpace(content[start:end])})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].number < steps[j].number })
	return steps
}

// extractGlobalRequirements pulls the "For all pages:" bullet section into
// verifications prepended to every step.
func (p *Parser) extractGlobalRequirements(content string) []schemas.Verification {
	match := globalSectionPattern.FindStringSubmatch(content)
	if match == nil {
		return nil
	}

	var globals []schemas.Verification
	for _, line := range strings.Split(match[1], "\n") {
		line = strings.TrimSpace(bulletPrefixPattern.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}

		if vs := p.extractVerifications(line); len(vs) > 0 {
			globals = append(globals, vs...)
			continue
		}

		// Lines like "Every page must have a footer" carry requirement
		// keywords without a trigger phrase; take the whole line.
		lower := strings.ToLower(line)
		if containsAny(lower, "make sure", "verify", "check", "confirm", "ensure",
			"must", "need", "should", "require", "has to") {
			globals = append(globals, schemas.Verification{
				Requirement: line,
				Severity:    inferSeverity(lower),
				Description: line,
			})
		}
	}

	p.logger.Debug("Extracted global requirements", zap.Int("count", len(globals)))
	return globals
}

func (p *Parser) parseStep(number int, text string, globals []schemas.Verification) (schemas.TestStep, error) {
	step, err := schemas.NewTestStep(number, extractDescription(text))
	if err != nil {
		return schemas.TestStep{}, err
	}

	step.Verifications = append(append([]schemas.Verification(nil), globals...), p.extractVerifications(text)...)
	step.Actions = p.extractActions(text)
	step.ExpectedPage = extractExpectedPage(text)
	step.ExpectedElements = extractExpectedElements(text)
	return step, nil
}

// extractDescription returns the first non-bullet line with discourse
// markers stripped, capped at maxDescriptionBytes.
func extractDescription(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			continue
		}
		line = discourseMarkerPattern.ReplaceAllString(line, "")
		line = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		if len(line) > maxDescriptionBytes {
			cut := maxDescriptionBytes
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			line = line[:cut]
		}
		return line
	}
	return "Step description"
}

// extractVerifications scans sentences against the trigger table. The first
// trigger that matches a sentence wins; duplicates (case-insensitive
// requirement text) are dropped.
func (p *Parser) extractVerifications(text string) []schemas.Verification {
	var verifications []schemas.Verification
	seen := make(map[string]bool)

	for _, sentence := range splitSentences(text) {
		for _, pattern := range verificationPatterns {
			match := pattern.FindStringSubmatch(sentence)
			if match == nil {
				continue
			}
			requirement := strings.TrimSpace(match[1])
			if len(requirement) < 3 {
				continue
			}
			key := strings.ToLower(requirement)
			if seen[key] {
				continue
			}
			seen[key] = true

			verifications = append(verifications, schemas.Verification{
				Requirement: requirement,
				Severity:    inferSeverity(strings.ToLower(sentence)),
				Description: sentence,
			})
			break
		}
	}
	return verifications
}

// extractActions scans sentences against the per-type pattern tables. At
// most one action per type is taken from a sentence; duplicates by
// (type, target, value) are dropped.
func (p *Parser) extractActions(text string) []schemas.Action {
	var actions []schemas.Action
	seen := make(map[string]bool)

	for _, sentence := range splitSentences(text) {
		for _, table := range actionPatterns {
			for _, ap := range table.patterns {
				match := ap.re.FindStringSubmatch(sentence)
				if match == nil {
					continue
				}

				var target, value string
				switch ap.layout {
				case captureTarget:
					target = strings.TrimSpace(match[1])
				case captureValueTarget:
					value = strings.TrimSpace(match[1])
					target = strings.TrimSpace(match[2])
				case captureTargetValue:
					target = strings.TrimSpace(match[1])
					value = strings.TrimSpace(match[2])
				case captureValueOnly:
					value = strings.TrimSpace(match[1])
					target = inferFieldName(sentence)
					if target == "" {
						p.logger.Warn("dropping value action: no target field could be inferred",
							zap.String("type", string(table.actionType)),
							zap.String("sentence", sentence))
						continue
					}
				}

				if target == "" {
					continue
				}
				if table.actionType.RequiresValue() && value == "" {
					p.logger.Debug("Skipping action with empty value",
						zap.String("type", string(table.actionType)),
						zap.String("target", target))
					continue
				}

				key := string(table.actionType) + "|" + strings.ToLower(target) + "|" + strings.ToLower(value)
				if seen[key] {
					continue
				}
				seen[key] = true

				action, err := schemas.NewAction(table.actionType, target, value)
				if err != nil {
					continue
				}
				action.Description = sentence
				actions = append(actions, action)
				break
			}
		}
	}
	return actions
}

// inferFieldName derives an input field name from a "Label: Enter '<value>'"
// context, returning "" when no label precedes the trigger verb.
func inferFieldName(sentence string) string {
	if match := fieldLabelPattern.FindStringSubmatch(sentence); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}

func extractExpectedPage(text string) string {
	for _, pattern := range expectedPagePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

func extractExpectedElements(text string) []string {
	var elements []string
	for _, match := range expectedElementPattern.FindAllStringSubmatch(text, -1) {
		if el := strings.TrimSpace(match[1]); el != "" {
			elements = append(elements, el)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			el := bulletPrefixPattern.ReplaceAllString(line, "")
			if len(el) > 3 {
				elements = append(elements, el)
			}
		}
	}
	return elements
}

// inferSeverity classifies a sentence by requirement keywords. Critical
// keywords win over minor ones; the default is MAJOR.
func inferSeverity(lowerSentence string) schemas.Severity {
	if containsAny(lowerSentence, criticalKeywords...) {
		return schemas.SeverityCritical
	}
	if containsAny(lowerSentence, minorKeywords...) {
		return schemas.SeverityMinor
	}
	return schemas.SeverityMajor
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// suiteNameFromPath derives a human-friendly suite name from the file stem.
func suiteNameFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, " Requirements", "")
	stem = strings.ReplaceAll(stem, "_", " ")
	return titleCase(stem)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
