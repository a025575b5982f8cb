package actions

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action type identifiers as they appear in the JSON "action" field.
const (
	ActionWaitForSelector   = "waitForSelector"
	ActionClick             = "click"
	ActionType              = "type"
	ActionSelect            = "select"
	ActionWaitForNavigation = "waitForNavigation"
	ActionSleep             = "sleep"
	ActionScrollTo          = "scrollTo"
	ActionAssertSelector    = "assertSelector"
	ActionAssertText        = "assertText"
	ActionAssertURL         = "assertUrl"
	ActionAssertTitle       = "assertTitle"
	ActionAssert            = "assert"
)

// Step is one entry of an action sequence. Which fields carry meaning
// depends on Action; Validate enforces the per-action contract.
type Step struct {
	Action string `json:"action"`

	Selector   string `json:"selector,omitempty"`
	Text       string `json:"text,omitempty"`
	Value      string `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
	Pattern    string `json:"pattern,omitempty"`

	// Timeout and Delay are milliseconds; zero means default.
	Timeout int `json:"timeout,omitempty"`
	Delay   int `json:"delay,omitempty"`
	Ms      int `json:"ms,omitempty"`

	// Y distinguishes scrollTo y:0 from an absent y.
	Y *int `json:"y,omitempty"`

	Visible  bool `json:"visible,omitempty"`
	Count    *int `json:"count,omitempty"`
	Contains bool `json:"contains,omitempty"`

	WaitUntil string `json:"waitUntil,omitempty"`
	Message   string `json:"message,omitempty"`
	Label     string `json:"label,omitempty"`
}

// Sequence is a parsed action script.
type Sequence struct {
	Steps       []Step `json:"steps"`
	Explanation string `json:"explanation,omitempty"`
}

// actionSpec is the structural contract of one action type.
type actionSpec struct {
	// required names the fields that must be present, in contract order
	required []string
	// assertion marks the assert* family
	assertion bool
}

// actionSpecs drives validation; the key set defines the known types.
var actionSpecs = map[string]actionSpec{
	ActionWaitForSelector:   {required: []string{"selector"}},
	ActionClick:             {required: []string{"selector"}},
	ActionType:              {required: []string{"selector", "text"}},
	ActionSelect:            {required: []string{"selector", "value"}},
	ActionWaitForNavigation: {},
	ActionSleep:             {required: []string{"ms"}},
	ActionScrollTo:          {}, // needs selector or y, checked separately
	ActionAssertSelector:    {required: []string{"selector"}, assertion: true},
	ActionAssertText:        {required: []string{"selector", "text"}, assertion: true},
	ActionAssertURL:         {required: []string{"pattern"}, assertion: true},
	ActionAssertTitle:       {required: []string{"pattern"}, assertion: true},
	ActionAssert:            {required: []string{"expression"}, assertion: true},
}

// knownActionOrder is the stable listing used in error hints.
var knownActionOrder = []string{
	ActionWaitForSelector,
	ActionClick,
	ActionType,
	ActionSelect,
	ActionWaitForNavigation,
	ActionSleep,
	ActionScrollTo,
	ActionAssertSelector,
	ActionAssertText,
	ActionAssertURL,
	ActionAssertTitle,
	ActionAssert,
}

// KnownActionTypes returns every supported action type in a stable order.
func KnownActionTypes() []string {
	out := make([]string, len(knownActionOrder))
	copy(out, knownActionOrder)
	return out
}

// IsAssertion reports whether the action type is one of the assert* family.
func IsAssertion(action string) bool {
	return actionSpecs[action].assertion
}

// Parse decodes an action script. The script must be a JSON object with
// a steps array; step contents are checked by Validate, not here.
func Parse(script string) (*Sequence, error) {
	var seq Sequence
	if err := json.Unmarshal([]byte(script), &seq); err != nil {
		return nil, fmt.Errorf("invalid action script JSON: %w", err)
	}
	if seq.Steps == nil {
		return nil, errors.New("action script must contain a steps array")
	}
	return &seq, nil
}

// Describe names a step for error messages, preferring its label.
func (s *Step) Describe(index int) string {
	if s.Label != "" {
		return fmt.Sprintf("step %d (%s, %q)", index+1, s.Action, s.Label)
	}
	return fmt.Sprintf("step %d (%s)", index+1, s.Action)
}
