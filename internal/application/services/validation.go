package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/snapwatch/worker/internal/application/actions"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// ValidateID checks that an ID is not empty
func ValidateID(id string, entityType string) error {
	if id == "" {
		return domain.NewDomainError(domain.ErrInvalidID, entityType+" ID cannot be empty")
	}
	return nil
}

// ValidateRequired checks that a required string field is not empty
func ValidateRequired(value string, fieldName string) error {
	if value == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, fieldName+" is required")
	}
	return nil
}

// ValidatePositive checks that a number is positive
func ValidatePositive(value int, fieldName string) error {
	if value <= 0 {
		return domain.NewDomainError(domain.ErrInvalidInput, fieldName+" must be positive")
	}
	return nil
}

// ValidateRange checks that a number is within the specified range (inclusive)
func ValidateRange(value int, fieldName string, min, max int) error {
	if value < min {
		return domain.NewDomainError(domain.ErrInvalidInput,
			fmt.Sprintf("%s must be at least %d (got %d)", fieldName, min, value))
	}
	if value > max {
		return domain.NewDomainError(domain.ErrInvalidInput,
			fmt.Sprintf("%s must be at most %d (got %d)", fieldName, max, value))
	}
	return nil
}

// ScriptValidationResult is the outcome of validating a script of either
// type, shaped for the validation_result payload of the generation
// endpoints. Step counts are only populated for action scripts.
type ScriptValidationResult struct {
	Valid      bool               `json:"valid"`
	TotalSteps int                `json:"total_steps,omitempty"`
	ValidSteps int                `json:"valid_steps,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	Trial      *ports.ScriptTrial `json:"trial,omitempty"`
}

// forbiddenEvalCalls are browser APIs an eval script may not call: they
// escape the synchronous evaluation model or block the page.
var forbiddenEvalCalls = regexp.MustCompile(`\b(setTimeout|setInterval|fetch|XMLHttpRequest|alert|confirm|prompt)\s*\(`)

// ValidateScript routes a script to the validator for its type. asTest
// applies the stricter test-script rules.
func ValidateScript(script string, scriptType models.ScriptType, asTest bool) *ScriptValidationResult {
	if scriptType == models.ScriptTypeActions {
		return ValidateActionScript(script, asTest)
	}
	return ValidateEvalScript(script, asTest)
}

// ValidateActionScript statically validates an action DSL document.
func ValidateActionScript(script string, asTest bool) *ScriptValidationResult {
	report := actions.ValidateScript(script, asTest)
	return &ScriptValidationResult{
		Valid:      report.Valid,
		TotalSteps: report.TotalSteps,
		ValidSteps: report.ValidSteps,
		Errors:     report.Errors,
		Warnings:   report.Warnings,
	}
}

// ValidateEvalScript statically checks a free-form eval script. The
// checks are heuristic; runtime behavior is covered by the trial run.
func ValidateEvalScript(script string, asTest bool) *ScriptValidationResult {
	result := &ScriptValidationResult{}

	if strings.TrimSpace(script) == "" {
		result.Errors = append(result.Errors, "script is empty")
		return result
	}

	seen := map[string]bool{}
	for _, match := range forbiddenEvalCalls.FindAllStringSubmatch(script, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		result.Errors = append(result.Errors, fmt.Sprintf("%s is not allowed in eval scripts", name))
	}

	if asTest && !strings.Contains(script, "passed") {
		result.Warnings = append(result.Warnings, "test expression should evaluate to {passed: boolean, message: string}")
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// RequireValidScript converts a failed validation into a domain error
// for callers that must not persist or return an invalid script.
func RequireValidScript(result *ScriptValidationResult) error {
	if result.Valid {
		return nil
	}
	return domain.NewDomainError(domain.ErrScriptInvalid, strings.Join(result.Errors, "; "))
}
