package handlers

import (
	"net/http"

	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// ScriptsHandler serves script generation and trial-run endpoints
type ScriptsHandler struct {
	generate *usecases.GenerateScript
	try      *usecases.TestScript
}

func NewScriptsHandler(generate *usecases.GenerateScript, try *usecases.TestScript) *ScriptsHandler {
	return &ScriptsHandler{
		generate: generate,
		try:      try,
	}
}

type generateScriptRequest struct {
	PageURL   string `json:"page_url"`
	Prompt    string `json:"prompt"`
	Viewport  string `json:"viewport,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type generateScriptResponse struct {
	Success          bool                             `json:"success"`
	Script           string                           `json:"script"`
	ScriptType       models.ScriptType                `json:"script_type"`
	Explanation      string                           `json:"explanation,omitempty"`
	Warning          string                           `json:"warning,omitempty"`
	ValidationResult *services.ScriptValidationResult `json:"validation_result,omitempty"`
}

// GenerateScript handles POST /generate-script
func (h *ScriptsHandler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	h.generateForKind(w, r, ports.GenerationKindScript)
}

// GenerateTest handles POST /generate-test
func (h *ScriptsHandler) GenerateTest(w http.ResponseWriter, r *http.Request) {
	h.generateForKind(w, r, ports.GenerationKindTest)
}

// GenerateActionScript handles POST /generate-action-script
func (h *ScriptsHandler) GenerateActionScript(w http.ResponseWriter, r *http.Request) {
	h.generateForKind(w, r, ports.GenerationKindActionScript)
}

// GenerateActionTest handles POST /generate-action-test
func (h *ScriptsHandler) GenerateActionTest(w http.ResponseWriter, r *http.Request) {
	h.generateForKind(w, r, ports.GenerationKindActionTest)
}

func (h *ScriptsHandler) generateForKind(w http.ResponseWriter, r *http.Request, kind string) {
	req, ok := decodeJSON[generateScriptRequest](r, w)
	if !ok {
		return
	}

	out, err := h.generate.Execute(r.Context(), usecases.GenerateScriptInput{
		Kind:      kind,
		PageURL:   req.PageURL,
		Prompt:    req.Prompt,
		Viewport:  req.Viewport,
		SessionID: req.SessionID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := generateScriptResponse{
		Success:     true,
		Script:      out.Script,
		ScriptType:  out.ScriptType,
		Explanation: out.Explanation,
		Warning:     out.Warning,
	}
	// test kinds carry the trial outcome back to the editor
	if kind == ports.GenerationKindTest || kind == ports.GenerationKindActionTest {
		resp.ValidationResult = out.Validation
	}
	respondJSON(w, resp, http.StatusOK)
}

type testScriptRequest struct {
	PageURL    string `json:"page_url"`
	Script     string `json:"script"`
	ScriptType string `json:"script_type,omitempty"`
	Viewport   string `json:"viewport,omitempty"`
	AsTest     bool   `json:"as_test,omitempty"`
}

type testScriptResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// TestScript handles POST /test-script. Success reflects the trial
// outcome, not transport health: a script that ran and failed its
// assertion still answers 200 with success false.
func (h *ScriptsHandler) TestScript(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[testScriptRequest](r, w)
	if !ok {
		return
	}

	trial, err := h.try.Execute(r.Context(), usecases.TestScriptInput{
		PageURL:    req.PageURL,
		Script:     req.Script,
		ScriptType: req.ScriptType,
		Viewport:   req.Viewport,
		AsTest:     req.AsTest,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, testScriptResponse{Success: trial.OK, Message: trial.Message}, http.StatusOK)
}
