package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ruler/internal/loader"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Problems int                      `json:"problems"`
	Errors   []loader.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <problems-dir>",
		Short: "Validate problems without compiling",
		Long: `Validate CUE problems without compiling them.

Checks CUE syntax, the problem schema, the predicate vocabulary and
arities, and point bookkeeping. Every error is reported, not only the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, problemsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := loader.LoadProblems(problemsDir, loader.LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return formatter.fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, problemsDir)

	var validationErrors []loader.ValidationError

	// Malformed problems never reach Validate; report them alongside.
	for _, err := range loadErrors {
		ve := loader.ValidationError{Field: "load", Message: err.Error(), Code: loader.ErrCodeGeneric}
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			ve.Code = loadErr.Code
			ve.Message = loadErr.Message
			if loadErr.Field != "" {
				ve.Field = loadErr.Field
			}
			if loadErr.Pos.IsValid() {
				ve.Line = loadErr.Pos.Line()
			}
		}
		validationErrors = append(validationErrors, ve)
	}

	for _, p := range loadResult.Problems {
		formatter.VerboseLog("Validating problem: %s", p.Name)
		for _, ve := range loader.Validate(p) {
			ve.Field = p.Name + "." + ve.Field
			if pos, ok := loadResult.Positions[p.Name]; ok && pos.IsValid() {
				ve.Line = pos.Line()
			}
			validationErrors = append(validationErrors, ve)
		}
	}

	result := ValidationResult{
		Valid:    len(validationErrors) == 0,
		Problems: len(loadResult.Problems),
		Errors:   validationErrors,
	}
	return outputValidationResult(formatter, result)
}

// outputValidationResult outputs the validation result in the configured format.
func outputValidationResult(formatter *OutputFormatter, result ValidationResult) error {
	if result.Valid {
		if formatter.IsJSON() {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %d problem(s) valid\n", result.Problems)
		return nil
	}

	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.IsJSON() {
		first := result.Errors[0]
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, ve := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s\n", ve.Error())
	}
	fmt.Fprintln(formatter.Writer)
	fmt.Fprintf(formatter.Writer, "%d error(s) in %d problem(s)\n", len(result.Errors), result.Problems)
	return exitErr
}
