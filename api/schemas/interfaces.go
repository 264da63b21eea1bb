package schemas

import (
	"context"
	"errors"
	"time"
)

// -- Sentinel Errors --

var (
	// ErrElementNotFound is returned by Page operations when no element
	// matched the selector within the wait budget. The resolver uses it to
	// distinguish "try the next strategy" from hard browser failures.
	ErrElementNotFound = errors.New("element not found")

	// ErrNavigationTimeout is returned when a navigation did not reach the
	// network-idle state in time. Callers treat it as non-fatal evidence
	// degradation, not a step failure.
	ErrNavigationTimeout = errors.New("navigation timeout")
)

// -- Browser Capability --

// Page is the browser surface the executor drives. Implementations wrap a
// live browser tab; every method honors the supplied context for
// cancellation and deadlines.
type Page interface {
	// Navigate loads the URL and waits for the network to go idle.
	Navigate(ctx context.Context, url string) error

	// WaitNetworkIdle blocks until in-flight network activity settles or
	// the configured tolerance elapses.
	WaitNetworkIdle(ctx context.Context) error

	// Click dispatches a click on the first element matching the selector.
	Click(ctx context.Context, selector string) error

	// Fill clears the matched input and types the value into it.
	Fill(ctx context.Context, selector, value string) error

	// SelectOption chooses the option with the given visible label or value.
	SelectOption(ctx context.Context, selector, value string) error

	// SetChecked checks or unchecks the matched checkbox.
	SetChecked(ctx context.Context, selector string, checked bool) error

	// WaitVisible blocks until the selector matches a visible element.
	WaitVisible(ctx context.Context, selector string) error

	// ScrollIntoView scrolls the matched element into the viewport.
	ScrollIntoView(ctx context.Context, selector string) error

	// ScrollTo scrolls the window to an absolute position ("top", "bottom").
	ScrollTo(ctx context.Context, position string) error

	// Sleep pauses for the duration, returning early on context cancel.
	Sleep(ctx context.Context, d time.Duration) error

	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)

	// Content returns the serialized HTML of the current document.
	Content(ctx context.Context) (string, error)

	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)

	// Title returns the current document title.
	Title(ctx context.Context) (string, error)

	// Close releases the tab and its resources.
	Close() error
}

// BrowserManager owns the browser process and hands out pages.
type BrowserManager interface {
	NewPage(ctx context.Context) (Page, error)
	Shutdown(ctx context.Context) error
}

// -- AI Verification --

// Evidence is the page snapshot handed to the verifier alongside a
// requirement. Screenshot holds PNG bytes; HTML is the raw document, which
// the verifier compacts to its evidence budget before prompting.
type Evidence struct {
	Screenshot []byte
	HTML       string
	URL        string
	Title      string
}

// Verifier judges whether a single natural-language requirement holds
// against the captured page evidence. A returned error means the verifier
// could not produce a judgement at all (transport failure, malformed model
// output); it is not a statement about the requirement.
type Verifier interface {
	Verify(ctx context.Context, requirement string, ev Evidence) (VerificationResult, error)

	// Model identifies the underlying model for result attribution.
	Model() string
}

// -- LLM Transport --

// GenerationRequest is a single multimodal completion request sent to an
// LLM provider.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string

	// Screenshot, when non-nil, is attached as an inline PNG image part.
	Screenshot []byte

	// ForceJSON asks the provider for a JSON-only response where the
	// provider API supports that mode.
	ForceJSON bool

	Temperature float64
}

// LLMClient is the transport to one LLM provider. Implementations retry
// transient failures internally and return permanent errors unwrapped.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}
