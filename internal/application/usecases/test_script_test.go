package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/ports"
)

func TestTestScriptRunsValidEvalScript(t *testing.T) {
	engine := &mockEngine{trial: &ports.ScriptTrial{OK: true, Message: "clicked"}}
	uc := NewTestScript(engine)

	trial, err := uc.Execute(context.Background(), TestScriptInput{
		PageURL: "https://example.com",
		Script:  "document.querySelector('#cta').click()",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !trial.OK || trial.Message != "clicked" {
		t.Errorf("trial = %+v, want the engine's result", trial)
	}
	if len(engine.triedScripts()) != 1 {
		t.Errorf("engine runs = %d, want 1", len(engine.triedScripts()))
	}
}

func TestTestScriptShortCircuitsInvalidScript(t *testing.T) {
	engine := &mockEngine{}
	uc := NewTestScript(engine)

	trial, err := uc.Execute(context.Background(), TestScriptInput{
		PageURL: "https://example.com",
		Script:  "fetch('/api').then(console.log)",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if trial.OK {
		t.Error("trial reported OK for a forbidden script")
	}
	if !strings.Contains(trial.Message, "not allowed") {
		t.Errorf("trial message = %q, want the validation error", trial.Message)
	}
	if len(engine.triedScripts()) != 0 {
		t.Error("invalid script must not reach a browser")
	}
}

func TestTestScriptValidatesActionScriptStatically(t *testing.T) {
	engine := &mockEngine{}
	uc := NewTestScript(engine)

	trial, err := uc.Execute(context.Background(), TestScriptInput{
		PageURL:    "https://example.com",
		Script:     `{"steps":[{"action":"teleport"}]}`,
		ScriptType: "actions",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if trial.OK {
		t.Error("trial reported OK for an unknown action type")
	}
	if len(engine.triedScripts()) != 0 {
		t.Error("invalid action script must not reach a browser")
	}
}

func TestTestScriptRunsValidActionScript(t *testing.T) {
	engine := &mockEngine{trial: &ports.ScriptTrial{OK: true}}
	uc := NewTestScript(engine)

	trial, err := uc.Execute(context.Background(), TestScriptInput{
		PageURL:    "https://example.com",
		Script:     `{"steps":[{"action":"assertTitle","pattern":"Example"}]}`,
		ScriptType: "actions",
		AsTest:     true,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !trial.OK {
		t.Errorf("trial = %+v, want OK", trial)
	}
	if len(engine.triedScripts()) != 1 {
		t.Errorf("engine runs = %d, want 1", len(engine.triedScripts()))
	}
}

func TestTestScriptRejectsUnknownType(t *testing.T) {
	uc := NewTestScript(&mockEngine{})

	_, err := uc.Execute(context.Background(), TestScriptInput{
		PageURL:    "https://example.com",
		Script:     "document.title",
		ScriptType: "python",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Execute() error = %v, want ErrInvalidInput", err)
	}
}

func TestTestScriptRequiresInputs(t *testing.T) {
	uc := NewTestScript(&mockEngine{})

	if _, err := uc.Execute(context.Background(), TestScriptInput{Script: "x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing page url: error = %v, want ErrInvalidInput", err)
	}
	if _, err := uc.Execute(context.Background(), TestScriptInput{PageURL: "https://example.com"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing script: error = %v, want ErrInvalidInput", err)
	}
}
