package parser

import (
	"regexp"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// The extraction grammar is data-driven: ordered pattern tables per
// category, matched first-wins against each sentence.

// verificationPatterns are the trigger phrases that turn a sentence into a
// Verification. Order matters; the first trigger that matches a sentence
// wins.
var verificationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)make sure (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)verify (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)check (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)confirm (?:that )?(.+?)(?:\.|$)`),
	regexp.MustCompile(`(?i)ensure (?:that )?(.+?)(?:\.|$)`),
}

// captureLayout describes what an action pattern's capture groups hold.
type captureLayout int

const (
	// captureTarget: one group, the element target.
	captureTarget captureLayout = iota
	// captureValueTarget: group 1 is the value, group 2 the target.
	captureValueTarget
	// captureTargetValue: group 1 is the target, group 2 the value.
	captureTargetValue
	// captureValueOnly: one group, the value; the target field must be
	// inferred from surrounding label context.
	captureValueOnly
)

type actionPattern struct {
	re     *regexp.Regexp
	layout captureLayout
}

// actionPatternTable pairs an action type with its ordered pattern list.
type actionPatternTable struct {
	actionType schemas.ActionType
	patterns   []actionPattern
}

// actionPatterns is scanned in order for every sentence; at most one action
// per type is extracted from a single sentence.
var actionPatterns = []actionPatternTable{
	{
		actionType: schemas.ActionClick,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)click (?:on )?(?:the )?["']?([^"']+?)["']?(?:\s|\.|$)`), captureTarget},
			{regexp.MustCompile(`(?i)click on ["']?([^"']+?)["']?(?:\s|\.|$)`), captureTarget},
		},
	},
	{
		// Navigation targets must be explicit: an absolute URL or a quoted
		// destination name. Descriptive phrases ("Go to the homepage")
		// describe intent for the reader, not an executable action.
		actionType: schemas.ActionNavigate,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)(?:go|navigate) to (https?://[^\s"']+[^\s"'.])`), captureTarget},
			{regexp.MustCompile(`(?i)go to (?:the )?["']([^"']+?)["'](?:\s|\.|$)`), captureTarget},
			{regexp.MustCompile(`(?i)navigate to (?:the )?["']([^"']+?)["'](?:\s|\.|$)`), captureTarget},
		},
	},
	{
		actionType: schemas.ActionTypeText,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)type ["']([^"']+?)["'] (?:in|into|to) (?:the )?["']?([^"']+?)["']?(?:\.|$)`), captureValueTarget},
			{regexp.MustCompile(`(?i)enter ["']([^"']+?)["'] (?:in|into|to) (?:the )?["']?([^"']+?)["']?(?:\.|$)`), captureValueTarget},
			{regexp.MustCompile(`(?i)(?:enter|type) ["']([^"']+?)["'](?:\.|$)`), captureValueOnly},
		},
	},
	{
		actionType: schemas.ActionSelect,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)select ["']([^"']+?)["'] (?:from|in) (?:the )?["']?([^"']+?)["']?(?:\.|$)`), captureValueTarget},
			{regexp.MustCompile(`(?i)choose ["']([^"']+?)["'] (?:from|in) (?:the )?["']?([^"']+?)["']?(?:\.|$)`), captureValueTarget},
			{regexp.MustCompile(`(?i)(?:select|choose) ["']([^"']+?)["'](?:\.|$)`), captureValueOnly},
		},
	},
	{
		actionType: schemas.ActionCheck,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)check (?:the )?["']?([^"']+?)["']?(?: (?:checkbox|option))?(?:\.|$)`), captureTarget},
			{regexp.MustCompile(`(?i)select (?:the )?["']?([^"']+?)["']? (?:checkbox|option)(?:\.|$)`), captureTarget},
		},
	},
	{
		actionType: schemas.ActionUncheck,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)uncheck (?:the )?["']?([^"']+?)["']?(?:\.|$)`), captureTarget},
		},
	},
	{
		actionType: schemas.ActionFill,
		patterns: []actionPattern{
			{regexp.MustCompile(`(?i)fill (?:out|in) (?:the )?["']?([^"']+?)["']? (?:with|as) ["']([^"']+?)["'](?:\.|$)`), captureTargetValue},
		},
	},
}

// -- Structural Patterns --

var (
	// stepMarkerPattern finds the start of each numbered step.
	stepMarkerPattern = regexp.MustCompile(`(?m)^(\d+)\.\s*`)

	// globalSectionPattern captures the bullet block following the
	// "For all pages:" header.
	globalSectionPattern = regexp.MustCompile(`(?im)^for all pages:\s*\n((?:[-*\x{2022}]\s*[^\n]+\n?)+)`)

	// bulletPrefixPattern strips leading bullet markers.
	bulletPrefixPattern = regexp.MustCompile(`^[-*\x{2022}]\s*`)

	// discourseMarkerPattern strips leading connectives from descriptions.
	discourseMarkerPattern = regexp.MustCompile(`(?i)^(?:first|then|next|after that|finally),?\s*`)

	// fieldLabelPattern infers an input field name from a
	// "Label Name: Enter '<value>'" context.
	fieldLabelPattern = regexp.MustCompile(`(?i)([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*):\s*(?:Enter|Type|Select|Choose)`)

	// urlPattern protects embedded URLs from sentence splitting.
	urlPattern = regexp.MustCompile(`https?://\S+`)
)

// -- Expected Page / Element Patterns --

var expectedPagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:make sure|verify|check|confirm) (?:that )?(?:the browser goes to|you are on|you see) (?:a page called|page) ["']([^"']+?)["']`),
	regexp.MustCompile(`(?i)(?:browser|page) (?:goes to|navigates to|shows) (?:a page called|page) ["']([^"']+?)["']`),
	regexp.MustCompile(`(?i)verify (?:that )?(?:you are on|you see) (?:the )?["']([^"']+?)["'] (?:page)`),
	regexp.MustCompile(`(?i)(?:make sure|verify) (?:that )?(?:the browser goes to|you are on) (?:a page called|page) ([^.]+?)(?:\.|$)`),
}

var expectedElementPattern = regexp.MustCompile(`(?i)(?:make sure|verify|check|confirm) (?:that )?(?:you see|there is|the page contains|the page has) (?:a )?["']?([^"']+?)["']?(?:\.|$)`)

// -- Severity Keywords --

var criticalKeywords = []string{"critical", "must", "required", "has to"}
var minorKeywords = []string{"should", "preferably", "nice to have"}
