package usecases

import (
	"context"
	"log"
	"strings"

	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// GenerateScript asks the generation service for an instruction or
// test script and validates the result before handing it back.
type GenerateScript struct {
	generator ports.ScriptGenerator
	engine    ports.CaptureEngine
}

func NewGenerateScript(generator ports.ScriptGenerator, engine ports.CaptureEngine) *GenerateScript {
	return &GenerateScript{generator: generator, engine: engine}
}

type GenerateScriptInput struct {
	Kind      string
	PageURL   string
	Prompt    string
	Viewport  string
	SessionID string
}

type GenerateScriptOutput struct {
	Script      string
	ScriptType  models.ScriptType
	Explanation string
	Warning     string
	Validation  *services.ScriptValidationResult
}

// Execute generates a script and refuses to return one that fails
// validation. For test kinds the validation result carries a
// best-effort trial run against the live page; trial failures are
// reported, never fatal.
func (uc *GenerateScript) Execute(ctx context.Context, input GenerateScriptInput) (*GenerateScriptOutput, error) {
	if err := services.ValidateRequired(input.PageURL, "page_url"); err != nil {
		return nil, err
	}
	if err := services.ValidateRequired(input.Prompt, "prompt"); err != nil {
		return nil, err
	}
	scriptType, asTest, err := kindContract(input.Kind)
	if err != nil {
		return nil, err
	}

	generated, err := uc.generator.GenerateScript(ctx, &ports.GenerateScriptRequest{
		Kind:      input.Kind,
		PageURL:   input.PageURL,
		Prompt:    input.Prompt,
		Viewport:  input.Viewport,
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, err
	}

	// The kind decides the script type; a mislabeled service response
	// is corrected rather than trusted.
	if generated.ScriptType != scriptType {
		log.Printf("[GenerateScript] service returned type %q for kind %q, using %q",
			generated.ScriptType, input.Kind, scriptType)
	}

	validation := services.ValidateScript(generated.Script, scriptType, asTest)
	if err := services.RequireValidScript(validation); err != nil {
		return nil, err
	}

	if asTest && uc.engine != nil {
		trial, err := uc.engine.TryScript(ctx, input.PageURL, input.Viewport, generated.Script, scriptType, true)
		if err != nil {
			log.Printf("[GenerateScript] trial run failed for %s: %v", input.PageURL, err)
			validation.Trial = &ports.ScriptTrial{OK: false, Message: "trial run failed: " + err.Error()}
		} else {
			validation.Trial = trial
		}
	}

	return &GenerateScriptOutput{
		Script:      generated.Script,
		ScriptType:  scriptType,
		Explanation: generated.Explanation,
		Warning:     strings.Join(validation.Warnings, "; "),
		Validation:  validation,
	}, nil
}

// kindContract maps a generation kind to the script type it must
// produce and whether the result is a test expression.
func kindContract(kind string) (scriptType models.ScriptType, asTest bool, err error) {
	switch kind {
	case ports.GenerationKindScript:
		return models.ScriptTypeEval, false, nil
	case ports.GenerationKindTest:
		return models.ScriptTypeEval, true, nil
	case ports.GenerationKindActionScript:
		return models.ScriptTypeActions, false, nil
	case ports.GenerationKindActionTest:
		return models.ScriptTypeActions, true, nil
	default:
		return "", false, domain.NewDomainError(domain.ErrInvalidInput, "unknown generation kind: "+kind)
	}
}
