package main

import (
	"fmt"
	"io"
	"os"

	"github.com/snapwatch/worker/internal/application/services"
	"github.com/snapwatch/worker/internal/domain/models"
	"github.com/spf13/cobra"
)

// validateCmd checks a script without a database or browser
func validateCmd() *cobra.Command {
	var scriptType string
	var asTest bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate an instruction or test script",
		Long: `Validate an action script or eval expression without running it.

Reads the script from the given file, or from stdin when no file is
given. Action scripts are checked step by step; eval scripts are
checked against the forbidden-call list.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 1 {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}

			var st models.ScriptType
			switch scriptType {
			case "actions":
				st = models.ScriptTypeActions
			case "eval":
				st = models.ScriptTypeEval
			default:
				return fmt.Errorf("unknown script type %q (want actions or eval)", scriptType)
			}

			result := services.ValidateScript(string(raw), st, asTest)

			if result.Valid {
				if result.TotalSteps > 0 {
					fmt.Printf("Script is valid (%d steps)\n", result.TotalSteps)
				} else {
					fmt.Println("Script is valid")
				}
			} else {
				fmt.Println("Script is invalid:")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			for _, w := range result.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}

			if !result.Valid {
				return fmt.Errorf("validation failed with %d errors", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptType, "type", "actions", "script type: actions or eval")
	cmd.Flags().BoolVar(&asTest, "as-test", false, "validate as a test script")

	return cmd
}
