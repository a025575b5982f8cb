package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func newScriptsHandler(generator *MockScriptGenerator, engine *MockCaptureEngine) *ScriptsHandler {
	return NewScriptsHandler(
		usecases.NewGenerateScript(generator, engine),
		usecases.NewTestScript(engine),
	)
}

func TestScriptsHandler_GenerateScript(t *testing.T) {
	generator := &MockScriptGenerator{
		script: &ports.GeneratedScript{
			Script:      "document.querySelector('#cookie-banner').remove();",
			ScriptType:  models.ScriptTypeEval,
			Explanation: "removes the cookie banner",
		},
	}
	engine := &MockCaptureEngine{}
	handler := newScriptsHandler(generator, engine)

	rr := postJSON(t, handler.GenerateScript, "/generate-script", generateScriptRequest{
		PageURL: "https://example.com",
		Prompt:  "remove the cookie banner",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response generateScriptResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !response.Success {
		t.Error("expected success true")
	}
	if response.Script != generator.script.Script {
		t.Errorf("unexpected script: %q", response.Script)
	}
	if response.ScriptType != models.ScriptTypeEval {
		t.Errorf("expected script_type eval, got %q", response.ScriptType)
	}
	if response.Explanation != "removes the cookie banner" {
		t.Errorf("unexpected explanation: %q", response.Explanation)
	}
	if response.ValidationResult != nil {
		t.Error("script kind should not carry a validation result")
	}
	if len(engine.tried) != 0 {
		t.Errorf("script kind should not run a trial, got %d", len(engine.tried))
	}
	if len(generator.requests) != 1 || generator.requests[0].Kind != ports.GenerationKindScript {
		t.Errorf("unexpected generator requests: %+v", generator.requests)
	}
}

func TestScriptsHandler_GenerateTest_IncludesValidation(t *testing.T) {
	generator := &MockScriptGenerator{
		script: &ports.GeneratedScript{
			Script:     "(() => ({ passed: document.title.length > 0, message: document.title }))()",
			ScriptType: models.ScriptTypeEval,
		},
	}
	engine := &MockCaptureEngine{trial: &ports.ScriptTrial{OK: true, Message: "passed"}}
	handler := newScriptsHandler(generator, engine)

	rr := postJSON(t, handler.GenerateTest, "/generate-test", generateScriptRequest{
		PageURL: "https://example.com",
		Prompt:  "check the title is set",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response generateScriptResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ValidationResult == nil {
		t.Fatal("expected a validation result for the test kind")
	}
	if !response.ValidationResult.Valid {
		t.Errorf("expected valid script, errors: %v", response.ValidationResult.Errors)
	}
	if response.ValidationResult.Trial == nil || !response.ValidationResult.Trial.OK {
		t.Errorf("expected a passing trial, got %+v", response.ValidationResult.Trial)
	}
	if len(engine.tried) != 1 {
		t.Errorf("expected one trial run, got %d", len(engine.tried))
	}
}

func TestScriptsHandler_GenerateScript_RejectsInvalidScript(t *testing.T) {
	generator := &MockScriptGenerator{
		script: &ports.GeneratedScript{
			Script:     "fetch('/api/steal')",
			ScriptType: models.ScriptTypeEval,
		},
	}
	handler := newScriptsHandler(generator, &MockCaptureEngine{})

	rr := postJSON(t, handler.GenerateScript, "/generate-script", generateScriptRequest{
		PageURL: "https://example.com",
		Prompt:  "do something",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var response errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Success {
		t.Error("expected success false")
	}
	if !strings.Contains(response.Error, "not allowed") {
		t.Errorf("unexpected error message: %q", response.Error)
	}
}

func TestScriptsHandler_GenerateScript_MissingFields(t *testing.T) {
	handler := newScriptsHandler(&MockScriptGenerator{}, &MockCaptureEngine{})

	rr := postJSON(t, handler.GenerateScript, "/generate-script", generateScriptRequest{
		Prompt: "no page url",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestScriptsHandler_GenerateScript_InvalidBody(t *testing.T) {
	handler := newScriptsHandler(&MockScriptGenerator{}, &MockCaptureEngine{})

	req := httptest.NewRequest(http.MethodPost, "/generate-script", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.GenerateScript(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestScriptsHandler_GenerateScript_ServiceUnavailable(t *testing.T) {
	generator := &MockScriptGenerator{err: domain.ErrGenerationUnavailable}
	handler := newScriptsHandler(generator, &MockCaptureEngine{})

	rr := postJSON(t, handler.GenerateScript, "/generate-script", generateScriptRequest{
		PageURL: "https://example.com",
		Prompt:  "anything",
	})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestScriptsHandler_TestScript(t *testing.T) {
	engine := &MockCaptureEngine{trial: &ports.ScriptTrial{OK: true, Message: "no errors"}}
	handler := newScriptsHandler(&MockScriptGenerator{}, engine)

	rr := postJSON(t, handler.TestScript, "/test-script", testScriptRequest{
		PageURL: "https://example.com",
		Script:  "document.title",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response testScriptResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success {
		t.Errorf("expected success true, message: %q", response.Message)
	}
	if len(engine.tried) != 1 {
		t.Errorf("expected one trial run, got %d", len(engine.tried))
	}
}

func TestScriptsHandler_TestScript_InvalidScriptShortCircuits(t *testing.T) {
	engine := &MockCaptureEngine{}
	handler := newScriptsHandler(&MockScriptGenerator{}, engine)

	rr := postJSON(t, handler.TestScript, "/test-script", testScriptRequest{
		PageURL: "https://example.com",
		Script:  "fetch('/api')",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response testScriptResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Success {
		t.Error("expected success false for an invalid script")
	}
	if !strings.Contains(response.Message, "not allowed") {
		t.Errorf("unexpected message: %q", response.Message)
	}
	if len(engine.tried) != 0 {
		t.Errorf("invalid scripts must not reach the browser, got %d runs", len(engine.tried))
	}
}

func TestScriptsHandler_TestScript_UnknownType(t *testing.T) {
	handler := newScriptsHandler(&MockScriptGenerator{}, &MockCaptureEngine{})

	rr := postJSON(t, handler.TestScript, "/test-script", testScriptRequest{
		PageURL:    "https://example.com",
		Script:     "print('hi')",
		ScriptType: "python",
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
