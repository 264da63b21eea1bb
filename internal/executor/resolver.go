// Package executor drives parsed test suites against a live browser page
// and aggregates AI verification outcomes into step results.
package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
)

// ActionExecutionError reports that every resolution strategy for an action
// failed. Attempted lists each selector tried, in order; Cause is the last
// underlying error.
type ActionExecutionError struct {
	Action    schemas.Action
	Attempted []string
	Cause     error
}

func (e *ActionExecutionError) Error() string {
	msg := fmt.Sprintf("could not %s %q: tried %d selectors", e.Action.Type, e.Action.Target, len(e.Attempted))
	if len(e.Attempted) > 0 {
		shown := e.Attempted
		if len(shown) > 5 {
			shown = shown[:5]
		}
		msg += fmt.Sprintf(" (%s", strings.Join(shown, ", "))
		if len(e.Attempted) > 5 {
			msg += fmt.Sprintf(" and %d more", len(e.Attempted)-5)
		}
		msg += ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ActionExecutionError) Unwrap() error { return e.Cause }

// strategy is one selector-based attempt to locate an element. Strategies
// whose precondition does not hold are still recorded as attempted, so the
// diagnostic list always reflects the full table.
type strategy struct {
	selector string
	skip     bool
}

// Resolver maps natural-language action targets onto DOM elements by trying
// an ordered list of selector strategies per action type. The first strategy
// that succeeds wins.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates an action resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	return &Resolver{logger: logger.Named("resolver")}
}

// Execute resolves and performs one action against the page. Failures after
// exhausting every strategy are reported as *ActionExecutionError.
func (r *Resolver) Execute(ctx context.Context, page schemas.Page, action schemas.Action) error {
	r.logger.Debug("Executing action",
		zap.String("type", string(action.Type)),
		zap.String("target", action.Target))

	switch action.Type {
	case schemas.ActionClick:
		return r.try(ctx, action, clickStrategies(action.Target), page.Click)
	case schemas.ActionTypeText, schemas.ActionFill:
		return r.try(ctx, action, inputStrategies(action.Target), func(ctx context.Context, sel string) error {
			return page.Fill(ctx, sel, action.Value)
		})
	case schemas.ActionSelect:
		return r.try(ctx, action, selectStrategies(action.Target, action.Value), func(ctx context.Context, sel string) error {
			if strings.HasPrefix(sel, "//option") {
				// Final fallback: the dropdown could not be located, click
				// the visible option text directly.
				return page.Click(ctx, sel)
			}
			return page.SelectOption(ctx, sel, action.Value)
		})
	case schemas.ActionCheck:
		return r.try(ctx, action, checkStrategies(action.Target), func(ctx context.Context, sel string) error {
			return page.SetChecked(ctx, sel, true)
		})
	case schemas.ActionUncheck:
		return r.try(ctx, action, uncheckStrategies(action.Target), func(ctx context.Context, sel string) error {
			return page.SetChecked(ctx, sel, false)
		})
	case schemas.ActionNavigate:
		return r.navigate(ctx, page, action)
	case schemas.ActionWait:
		return r.wait(ctx, page, action)
	case schemas.ActionScroll:
		return r.scroll(ctx, page, action)
	default:
		return &ActionExecutionError{Action: action, Cause: fmt.Errorf("unknown action type %q", action.Type)}
	}
}

// try walks the strategy list, returning on the first success.
func (r *Resolver) try(ctx context.Context, action schemas.Action, strategies []strategy, apply func(context.Context, string) error) error {
	attempted := make([]string, 0, len(strategies))
	var lastErr error

	for _, s := range strategies {
		attempted = append(attempted, s.selector)
		if s.skip {
			continue
		}
		if err := apply(ctx, s.selector); err != nil {
			lastErr = err
			r.logger.Debug("Selector strategy failed",
				zap.String("selector", s.selector),
				zap.Error(err))
			continue
		}
		r.logger.Debug("Selector strategy succeeded",
			zap.String("target", action.Target),
			zap.String("selector", s.selector))
		return nil
	}

	return &ActionExecutionError{Action: action, Attempted: attempted, Cause: lastErr}
}

// navigate loads a URL directly, or falls back to click resolution for
// named destinations, tolerating a missed network-idle signal.
func (r *Resolver) navigate(ctx context.Context, page schemas.Page, action schemas.Action) error {
	target := action.Target
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if err := page.Navigate(ctx, target); err != nil {
			return &ActionExecutionError{Action: action, Attempted: []string{target}, Cause: err}
		}
		return nil
	}

	if err := r.try(ctx, action, clickStrategies(target), page.Click); err != nil {
		return err
	}
	if err := page.WaitNetworkIdle(ctx); err != nil {
		// Clicking may not have triggered a navigation at all.
		r.logger.Debug("Post-click network idle wait lapsed", zap.String("target", target), zap.Error(err))
	}
	return nil
}

// wait interprets a numeric target as a millisecond delay, anything else as
// a wait-for-visible selector.
func (r *Resolver) wait(ctx context.Context, page schemas.Page, action schemas.Action) error {
	if ms, err := strconv.Atoi(strings.TrimSpace(action.Target)); err == nil {
		if ms < 0 {
			return &ActionExecutionError{Action: action, Cause: fmt.Errorf("wait time cannot be negative: %d", ms)}
		}
		return page.Sleep(ctx, time.Duration(ms)*time.Millisecond)
	}

	if err := page.WaitVisible(ctx, action.Target); err != nil {
		return &ActionExecutionError{Action: action, Attempted: []string{action.Target}, Cause: err}
	}
	return nil
}

// scroll handles the literal "top"/"bottom" keywords, otherwise scrolls the
// resolved element into view.
func (r *Resolver) scroll(ctx context.Context, page schemas.Page, action schemas.Action) error {
	switch strings.ToLower(action.Target) {
	case "top", "bottom":
		if err := page.ScrollTo(ctx, strings.ToLower(action.Target)); err != nil {
			return &ActionExecutionError{Action: action, Attempted: []string{action.Target}, Cause: err}
		}
		return nil
	}

	if err := page.ScrollIntoView(ctx, action.Target); err != nil {
		return &ActionExecutionError{Action: action, Attempted: []string{action.Target}, Cause: err}
	}
	return nil
}
