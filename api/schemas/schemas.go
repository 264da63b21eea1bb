// Package schemas defines the canonical data model shared across the
// veracity pipeline: parsed test suites, browser actions, AI verification
// results, and the aggregate views the reporters consume.
package schemas

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// -- Enums --

// StepStatus is the outcome of executing a single test step.
type StepStatus string

const (
	StatusPassed  StepStatus = "passed"
	StatusFailed  StepStatus = "failed"
	StatusWarning StepStatus = "warning"
	StatusSkipped StepStatus = "skipped"
	StatusPending StepStatus = "pending"
)

// ActionType identifies the kind of browser interaction a step performs.
type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionFill     ActionType = "fill"
	ActionSelect   ActionType = "select"
	ActionCheck    ActionType = "check"
	ActionUncheck  ActionType = "uncheck"
	ActionNavigate ActionType = "navigate"
	ActionWait     ActionType = "wait"
	ActionScroll   ActionType = "scroll"
)

// RequiresValue reports whether the action type is meaningless without an
// input value (text entry and option selection).
func (t ActionType) RequiresValue() bool {
	switch t {
	case ActionTypeText, ActionFill, ActionSelect:
		return true
	}
	return false
}

// Severity classifies how serious a requirement or a detected issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// DefaultWaitAfterMs is the settle delay applied after an action when the
// parser did not derive an explicit one.
const DefaultWaitAfterMs = 500

// -- Requirements and Actions --

// Verification is a single natural-language requirement to be judged by the
// AI verifier against the captured page state.
type Verification struct {
	Requirement string   `json:"requirement"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
}

// NewVerification validates and constructs a Verification. The description
// defaults to the requirement text itself.
func NewVerification(requirement string, severity Severity) (Verification, error) {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return Verification{}, fmt.Errorf("verification requirement must not be empty")
	}
	if severity == "" {
		severity = SeverityMajor
	}
	return Verification{
		Requirement: requirement,
		Severity:    severity,
		Description: requirement,
	}, nil
}

// Action is one concrete browser interaction derived from the requirement
// text. Target is the human-readable element reference ("Login button",
// "Email field"); the resolver maps it onto selectors at execution time.
type Action struct {
	Type        ActionType `json:"type"`
	Target      string     `json:"target"`
	Value       string     `json:"value,omitempty"`
	Description string     `json:"description,omitempty"`
	WaitAfterMs int        `json:"wait_after_ms"`
}

// NewAction validates and constructs an Action with the default settle delay.
func NewAction(actionType ActionType, target, value string) (Action, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Action{}, fmt.Errorf("action %q requires a target", actionType)
	}
	if actionType.RequiresValue() && value == "" {
		return Action{}, fmt.Errorf("action %q on %q requires a value", actionType, target)
	}
	return Action{
		Type:        actionType,
		Target:      target,
		Value:       value,
		WaitAfterMs: DefaultWaitAfterMs,
	}, nil
}

// -- Verification Outcomes --

// Issue is a concrete problem reported by the AI verifier.
type Issue struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	StepNumber  int      `json:"step_number,omitempty"`
	Element     string   `json:"element,omitempty"`
}

// VerificationResult is the verifier's judgement of one requirement.
// Confidence is a percentage in [0, 100].
type VerificationResult struct {
	Requirement string  `json:"requirement"`
	Passed      bool    `json:"passed"`
	Confidence  float64 `json:"confidence"`
	Issues      []Issue `json:"issues,omitempty"`
	AIReasoning string  `json:"ai_reasoning,omitempty"`
	DurationMs  int64   `json:"duration_ms"`
}

// Validate checks the result's internal consistency.
func (r VerificationResult) Validate() error {
	if r.Requirement == "" {
		return fmt.Errorf("verification result is missing its requirement")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("confidence %.1f outside [0, 100]", r.Confidence)
	}
	return nil
}

// PageState is the evidence captured from the browser after a step's actions
// complete. Screenshot holds PNG bytes.
type PageState struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Screenshot []byte    `json:"-"`
	HTML       string    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
}

// -- Test Structure --

// TestStep is one numbered step of a suite: the actions to perform followed
// by the requirements to verify against the resulting page.
type TestStep struct {
	StepNumber       int            `json:"step_number"`
	Description      string         `json:"description"`
	Actions          []Action       `json:"actions,omitempty"`
	Verifications    []Verification `json:"verifications,omitempty"`
	ExpectedPage     string         `json:"expected_page,omitempty"`
	ExpectedElements []string       `json:"expected_elements,omitempty"`
}

// NewTestStep validates and constructs a TestStep.
func NewTestStep(number int, description string) (TestStep, error) {
	if number < 1 {
		return TestStep{}, fmt.Errorf("step number must be >= 1, got %d", number)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return TestStep{}, fmt.Errorf("step %d has no description", number)
	}
	return TestStep{StepNumber: number, Description: description}, nil
}

// TestSuite is a parsed requirement document: ordered steps plus the
// suite-wide requirements verified after every step.
type TestSuite struct {
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Steps              []TestStep     `json:"steps"`
	GlobalRequirements []Verification `json:"global_requirements,omitempty"`
	SourceFile         string         `json:"source_file,omitempty"`
}

// NewTestSuite validates and constructs a TestSuite. Step numbers must be
// unique and strictly ascending; gaps are permitted.
func NewTestSuite(name string, steps []TestStep) (*TestSuite, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("test suite name must not be empty")
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("test suite %q has no steps", name)
	}
	if err := validateStepOrder(steps); err != nil {
		return nil, err
	}
	return &TestSuite{Name: name, Steps: steps}, nil
}

// validateStepOrder enforces unique, strictly ascending step numbers.
func validateStepOrder(steps []TestStep) error {
	seen := make(map[int]bool, len(steps))
	prev := 0
	for _, s := range steps {
		if seen[s.StepNumber] {
			return fmt.Errorf("duplicate step number %d", s.StepNumber)
		}
		seen[s.StepNumber] = true
		if s.StepNumber <= prev {
			return fmt.Errorf("step numbers out of order: %d after %d", s.StepNumber, prev)
		}
		prev = s.StepNumber
	}
	return nil
}

// StepNumbers returns the suite's step numbers in document order.
func (s *TestSuite) StepNumbers() []int {
	nums := make([]int, len(s.Steps))
	for i, step := range s.Steps {
		nums[i] = step.StepNumber
	}
	return nums
}

// HasGaps reports whether the step numbering skips values. The executor
// tolerates gaps; the parser logs them so authors can spot dropped steps.
func (s *TestSuite) HasGaps() bool {
	nums := s.StepNumbers()
	if len(nums) == 0 {
		return false
	}
	sort.Ints(nums)
	return nums[0] != 1 || nums[len(nums)-1] != len(nums)
}
