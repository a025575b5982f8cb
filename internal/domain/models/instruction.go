package models

import (
	"time"
)

// ScriptType distinguishes free-form evaluated scripts from action sequences
type ScriptType string

const (
	ScriptTypeEval    ScriptType = "eval"
	ScriptTypeActions ScriptType = "actions"
)

// Instruction is a page-preparation script run before each capture,
// ordered by ExecutionOrder within its page.
type Instruction struct {
	ID             string     `json:"id"`
	PageID         string     `json:"page_id"`
	Name           string     `json:"name"`
	Prompt         string     `json:"prompt"`
	Script         string     `json:"script"`
	ScriptType     ScriptType `json:"script_type"`
	ExecutionOrder int        `json:"execution_order"`
	IsActive       bool       `json:"is_active"`

	LastError     string     `json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	ErrorCount    int        `json:"error_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewInstruction(id, pageID, name, prompt string) *Instruction {
	now := time.Now().UTC()
	return &Instruction{
		ID:         id,
		PageID:     pageID,
		Name:       name,
		Prompt:     prompt,
		ScriptType: ScriptTypeEval,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsRunnable reports whether the capture pipeline should execute this
// instruction: active with a non-empty script.
func (i *Instruction) IsRunnable() bool {
	return i.IsActive && i.Script != ""
}

// RecordFailure notes a failed execution.
func (i *Instruction) RecordFailure(message string) {
	now := time.Now().UTC()
	i.LastError = message
	i.LastErrorAt = &now
	i.ErrorCount++
	i.UpdatedAt = now
}

// RecordSuccess notes a successful execution and clears the last error.
func (i *Instruction) RecordSuccess() {
	now := time.Now().UTC()
	i.LastError = ""
	i.LastErrorAt = nil
	i.LastSuccessAt = &now
	i.UpdatedAt = now
}

// InstructionResult is the per-instruction outcome of one capture,
// reported for the first viewport only.
type InstructionResult struct {
	InstructionID string `json:"instruction_id"`
	Name          string `json:"name"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}
