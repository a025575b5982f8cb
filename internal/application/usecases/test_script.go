package usecases

import (
	"context"
	"strings"

	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/snapwatch/worker/internal/ports"
)

// TestScript runs a user-supplied script once against a live page and
// reports whether it worked, without persisting anything.
type TestScript struct {
	engine ports.CaptureEngine
}

func NewTestScript(engine ports.CaptureEngine) *TestScript {
	return &TestScript{engine: engine}
}

type TestScriptInput struct {
	PageURL    string
	Script     string
	ScriptType string
	Viewport   string
	AsTest     bool
}

// Execute validates the script statically, then tries it in a browser.
// A script that fails static validation never reaches a browser; the
// result explains why instead.
func (uc *TestScript) Execute(ctx context.Context, input TestScriptInput) (*ports.ScriptTrial, error) {
	if err := services.ValidateRequired(input.PageURL, "page_url"); err != nil {
		return nil, err
	}
	if err := services.ValidateRequired(input.Script, "script"); err != nil {
		return nil, err
	}

	scriptType := models.ScriptType(input.ScriptType)
	if scriptType == "" {
		scriptType = models.ScriptTypeEval
	}
	if scriptType != models.ScriptTypeEval && scriptType != models.ScriptTypeActions {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "unknown script type: "+input.ScriptType)
	}

	validation := services.ValidateScript(input.Script, scriptType, input.AsTest)
	if !validation.Valid {
		return &ports.ScriptTrial{
			OK:      false,
			Message: "script is invalid: " + strings.Join(validation.Errors, "; "),
		}, nil
	}

	return uc.engine.TryScript(ctx, input.PageURL, input.Viewport, input.Script, scriptType, input.AsTest)
}
