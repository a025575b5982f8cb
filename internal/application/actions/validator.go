package actions

import (
	"fmt"
	"regexp"
	"strings"
)

// StepResult is the validation outcome for one step.
type StepResult struct {
	Index  int      `json:"index"`
	Action string   `json:"action"`
	Label  string   `json:"label,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Report aggregates structural validation of an action sequence. A
// sequence is valid only when every step is; warnings never invalidate.
type Report struct {
	Valid      bool         `json:"valid"`
	TotalSteps int          `json:"total_steps"`
	ValidSteps int          `json:"valid_steps"`
	Steps      []StepResult `json:"steps"`
	Errors     []string     `json:"errors,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// waitUntilValues are the accepted waitForNavigation readiness names.
var waitUntilValues = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle0":     true,
	"networkidle2":     true,
}

// forbiddenSelectorParts are non-standard pseudo-classes that the
// browser cannot resolve; selectors using them are rejected outright.
var forbiddenSelectorParts = []string{":text", ":contains"}

// ValidateScript parses and validates raw action script text. Parse
// failures produce an invalid report rather than an error so callers
// always get a structured result.
func ValidateScript(script string, asTest bool) *Report {
	seq, err := Parse(script)
	if err != nil {
		return &Report{Valid: false, Errors: []string{err.Error()}}
	}
	return Validate(seq, asTest)
}

// Validate structurally checks a parsed sequence. With asTest the
// zero-assertion warning applies. Runtime concerns are out of scope:
// a valid sequence may still fail when executed.
func Validate(seq *Sequence, asTest bool) *Report {
	report := &Report{Valid: true, TotalSteps: len(seq.Steps)}

	if len(seq.Steps) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "action script contains no steps")
		return report
	}

	assertions := 0
	for i := range seq.Steps {
		step := &seq.Steps[i]
		res := StepResult{Index: i, Action: step.Action, Label: step.Label, Valid: true}

		res.Errors = append(res.Errors, validateStep(step, i, report)...)
		if IsAssertion(step.Action) {
			assertions++
		}

		if len(res.Errors) > 0 {
			res.Valid = false
			report.Valid = false
			report.Errors = append(report.Errors, res.Errors...)
		} else {
			report.ValidSteps++
		}
		report.Steps = append(report.Steps, res)
	}

	if asTest && assertions == 0 {
		report.Warnings = append(report.Warnings,
			"test sequence contains no assert steps; it can never fail")
	}
	return report
}

// validateStep checks one step's structural contract, appending soft
// findings to the report's warnings.
func validateStep(step *Step, index int, report *Report) []string {
	if step.Action == "" {
		return []string{fmt.Sprintf("step %d: missing action type", index+1)}
	}

	spec, known := actionSpecs[step.Action]
	if !known {
		return []string{unknownActionError(step, index)}
	}

	var errs []string
	for _, field := range spec.required {
		if !step.fieldPresent(field) {
			errs = append(errs, requiredFieldError(step, index, field))
		}
	}

	if step.Selector != "" {
		for _, part := range forbiddenSelectorParts {
			if strings.Contains(step.Selector, part) {
				errs = append(errs, fmt.Sprintf(
					"%s: selector uses unsupported pseudo-class %q", step.Describe(index), part))
			}
		}
	}
	if step.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("%s: timeout cannot be negative", step.Describe(index)))
	}
	if step.Delay < 0 {
		errs = append(errs, fmt.Sprintf("%s: delay cannot be negative", step.Describe(index)))
	}
	if step.Count != nil && *step.Count < 0 {
		errs = append(errs, fmt.Sprintf("%s: count cannot be negative", step.Describe(index)))
	}

	switch step.Action {
	case ActionScrollTo:
		if step.Selector == "" && step.Y == nil {
			errs = append(errs, fmt.Sprintf(
				"%s: requires either %q or %q", step.Describe(index), "selector", "y"))
		}
	case ActionWaitForNavigation:
		if step.WaitUntil != "" && !waitUntilValues[step.WaitUntil] {
			errs = append(errs, fmt.Sprintf(
				"%s: unsupported waitUntil %q (use load, domcontentloaded, networkidle0 or networkidle2)",
				step.Describe(index), step.WaitUntil))
		}
	case ActionAssertURL, ActionAssertTitle:
		if step.Pattern != "" {
			if _, err := regexp.Compile(step.Pattern); err != nil {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"%s: pattern is not a valid regular expression and will match as a substring",
					step.Describe(index)))
			}
		}
	}
	return errs
}

func (s *Step) fieldPresent(name string) bool {
	switch name {
	case "selector":
		return s.Selector != ""
	case "text":
		return s.Text != ""
	case "value":
		return s.Value != ""
	case "expression":
		return s.Expression != ""
	case "pattern":
		return s.Pattern != ""
	case "ms":
		return s.Ms > 0
	}
	return false
}

func requiredFieldError(step *Step, index int, field string) string {
	if field == "ms" {
		return fmt.Sprintf("%s: %q must be a positive number of milliseconds",
			step.Describe(index), field)
	}
	return fmt.Sprintf("%s: missing required field %q", step.Describe(index), field)
}

func unknownActionError(step *Step, index int) string {
	return fmt.Sprintf("step %d: Unknown action type %q. Known types: %s",
		index+1, step.Action, strings.Join(knownActionOrder, ", "))
}
