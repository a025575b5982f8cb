package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/snapwatch/worker/internal/application/actions"
	"github.com/snapwatch/worker/internal/domain"
)

// defaultStepTimeout bounds element waits when a step carries none.
const defaultStepTimeout = 30 * time.Second

// executeActions runs a validated sequence against a prepared page.
// The first failing step stops execution; assertion failures surface
// the step's message as the error.
func executeActions(ctx context.Context, page *rod.Page, seq *actions.Sequence) error {
	page = page.Context(ctx)
	for i := range seq.Steps {
		step := &seq.Steps[i]
		if err := runStep(ctx, page, step); err != nil {
			return fmt.Errorf("%s: %w", step.Describe(i), err)
		}
	}
	return nil
}

// runActionTest executes a test sequence: the first failing step yields
// passed=false with its message, a clean run passes.
func runActionTest(ctx context.Context, page *rod.Page, seq *actions.Sequence) (bool, string) {
	page = page.Context(ctx)
	for i := range seq.Steps {
		step := &seq.Steps[i]
		if err := runStep(ctx, page, step); err != nil {
			return false, fmt.Sprintf("%s: %v", step.Describe(i), err)
		}
	}
	return true, ""
}

func stepTimeout(step *actions.Step) time.Duration {
	if step.Timeout > 0 {
		return time.Duration(step.Timeout) * time.Millisecond
	}
	return defaultStepTimeout
}

func runStep(ctx context.Context, page *rod.Page, step *actions.Step) error {
	switch step.Action {
	case actions.ActionWaitForSelector:
		return stepWaitForSelector(page, step)
	case actions.ActionClick:
		return stepClick(page, step)
	case actions.ActionType:
		return stepType(ctx, page, step)
	case actions.ActionSelect:
		return stepSelect(page, step)
	case actions.ActionWaitForNavigation:
		return stepWaitForNavigation(page, step)
	case actions.ActionSleep:
		return sleep(ctx, time.Duration(step.Ms)*time.Millisecond)
	case actions.ActionScrollTo:
		return stepScrollTo(page, step)
	case actions.ActionAssertSelector:
		return stepAssertSelector(page, step)
	case actions.ActionAssertText:
		return stepAssertText(page, step)
	case actions.ActionAssertURL:
		return stepAssertURL(page, step)
	case actions.ActionAssertTitle:
		return stepAssertTitle(page, step)
	case actions.ActionAssert:
		return stepAssert(page, step)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownActionType, step.Action)
	}
}

func stepWaitForSelector(page *rod.Page, step *actions.Step) error {
	el, err := page.Timeout(stepTimeout(step)).Element(step.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", step.Selector, err)
	}
	if step.Visible {
		if err := el.WaitVisible(); err != nil {
			return fmt.Errorf("element %q never became visible: %w", step.Selector, err)
		}
	}
	return nil
}

func stepClick(page *rod.Page, step *actions.Step) error {
	el, err := page.Timeout(stepTimeout(step)).Element(step.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", step.Selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click on %q failed: %w", step.Selector, err)
	}
	return nil
}

func stepType(ctx context.Context, page *rod.Page, step *actions.Step) error {
	el, err := page.Timeout(stepTimeout(step)).Element(step.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", step.Selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("could not focus %q: %w", step.Selector, err)
	}
	if step.Delay <= 0 {
		if err := el.Input(step.Text); err != nil {
			return fmt.Errorf("typing into %q failed: %w", step.Selector, err)
		}
		return nil
	}
	for _, r := range step.Text {
		if err := el.Input(string(r)); err != nil {
			return fmt.Errorf("typing into %q failed: %w", step.Selector, err)
		}
		if err := sleep(ctx, time.Duration(step.Delay)*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

func stepSelect(page *rod.Page, step *actions.Step) error {
	el, err := page.Timeout(stepTimeout(step)).Element(step.Selector)
	if err != nil {
		return fmt.Errorf("element %q not found: %w", step.Selector, err)
	}
	option := fmt.Sprintf("[value=%q]", step.Value)
	if err := el.Select([]string{option}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("selecting %q in %q failed: %w", step.Value, step.Selector, err)
	}
	return nil
}

func stepWaitForNavigation(page *rod.Page, step *actions.Step) error {
	event := proto.PageLifecycleEventNameLoad
	switch step.WaitUntil {
	case "domcontentloaded":
		event = proto.PageLifecycleEventNameDOMContentLoaded
	case "networkidle0":
		event = proto.PageLifecycleEventNameNetworkIdle
	case "networkidle2":
		event = proto.PageLifecycleEventNameNetworkAlmostIdle
	}
	wait := page.Timeout(stepTimeout(step)).WaitNavigation(event)
	wait()
	return nil
}

func stepScrollTo(page *rod.Page, step *actions.Step) error {
	if step.Selector != "" {
		el, err := page.Timeout(stepTimeout(step)).Element(step.Selector)
		if err != nil {
			return fmt.Errorf("element %q not found: %w", step.Selector, err)
		}
		if err := el.ScrollIntoView(); err != nil {
			return fmt.Errorf("scrolling to %q failed: %w", step.Selector, err)
		}
		return nil
	}
	if _, err := page.Eval(`(y) => window.scrollTo(0, y)`, *step.Y); err != nil {
		return fmt.Errorf("scrolling to y=%d failed: %w", *step.Y, err)
	}
	return nil
}

func stepAssertSelector(page *rod.Page, step *actions.Step) error {
	els, err := page.Elements(step.Selector)
	if err != nil {
		return assertionError(step, fmt.Sprintf("selector %q could not be evaluated: %v", step.Selector, err))
	}
	n := len(els)
	if step.Visible {
		n = 0
		for _, el := range els {
			if visible, err := el.Visible(); err == nil && visible {
				n++
			}
		}
	}
	if step.Count != nil {
		if n != *step.Count {
			return assertionError(step, fmt.Sprintf("expected %d matches for %q, found %d", *step.Count, step.Selector, n))
		}
		return nil
	}
	if n == 0 {
		return assertionError(step, fmt.Sprintf("no matches for %q", step.Selector))
	}
	return nil
}

func stepAssertText(page *rod.Page, step *actions.Step) error {
	el, err := page.Timeout(stepTimeout(step)).Element(step.Selector)
	if err != nil {
		return assertionError(step, fmt.Sprintf("element %q not found", step.Selector))
	}
	text, err := el.Text()
	if err != nil {
		return assertionError(step, fmt.Sprintf("could not read text of %q: %v", step.Selector, err))
	}
	got := strings.TrimSpace(text)
	want := strings.TrimSpace(step.Text)
	if step.Contains {
		if !strings.Contains(got, want) {
			return assertionError(step, fmt.Sprintf("text of %q does not contain %q", step.Selector, want))
		}
		return nil
	}
	if got != want {
		return assertionError(step, fmt.Sprintf("text of %q is %q, expected %q", step.Selector, got, want))
	}
	return nil
}

func stepAssertURL(page *rod.Page, step *actions.Step) error {
	info, err := page.Info()
	if err != nil {
		return assertionError(step, fmt.Sprintf("could not read page URL: %v", err))
	}
	if !matchPattern(info.URL, step.Pattern) {
		return assertionError(step, fmt.Sprintf("URL %q does not match %q", info.URL, step.Pattern))
	}
	return nil
}

func stepAssertTitle(page *rod.Page, step *actions.Step) error {
	info, err := page.Info()
	if err != nil {
		return assertionError(step, fmt.Sprintf("could not read page title: %v", err))
	}
	if !matchPattern(info.Title, step.Pattern) {
		return assertionError(step, fmt.Sprintf("title %q does not match %q", info.Title, step.Pattern))
	}
	return nil
}

func stepAssert(page *rod.Page, step *actions.Step) error {
	passed, message := evalTestScript(page, step.Expression, stepTimeout(step))
	if passed {
		return nil
	}
	if message == "" {
		message = "expression evaluated to passed=false"
	}
	return assertionError(step, message)
}

// assertionError prefers the step's custom message over the detail.
func assertionError(step *actions.Step, detail string) error {
	if step.Message != "" {
		return errors.New(step.Message)
	}
	return errors.New(detail)
}

// matchPattern treats the pattern as a regular expression, falling back
// to substring matching when it does not compile.
func matchPattern(value, pattern string) bool {
	if re, err := regexp.Compile(pattern); err == nil {
		return re.MatchString(value)
	}
	return strings.Contains(value, pattern)
}
