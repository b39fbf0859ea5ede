package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/session"
)

// LevelProblem is one level that failed validation.
type LevelProblem struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Levels   int            `json:"levels"`
	Problems []LevelProblem `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [levels-dir]",
		Short: "Check level files",
		Long: `Load a directory of CUE level files, check every level's
configuration and run every answer to build its reference drawing.

Without a directory the --levels directory, or the builtin pack, is
checked.

Exit codes:
  0 - All levels valid
  1 - One or more levels invalid
  2 - Command error (directory not found, CUE does not load, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := *rootOpts
			if len(args) == 1 {
				opts.Levels = args[0]
			}
			return runValidate(cmd, &opts)
		},
	}
}

func runValidate(cmd *cobra.Command, opts *RootOptions) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Levels != "" {
		if _, err := os.Stat(opts.Levels); err != nil {
			return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("levels directory not found: %s", opts.Levels), nil)
		}
	}

	pack, err := loadPack(opts, f)
	if err != nil {
		return err
	}

	result := ValidationResult{Valid: true, Levels: pack.Len()}
	for _, id := range pack.IDs() {
		cfg, err := pack.Get(id)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeGeneric, "level lookup failed", err)
		}
		f.VerboseLog("Checking level %s", id)
		if problem := validateLevel(ctx, cfg); problem != nil {
			result.Valid = false
			result.Problems = append(result.Problems, *problem)
		}
	}

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		for _, p := range result.Problems {
			fmt.Fprintf(f.Writer, "✗ %s [%s]: %s\n", p.Level, p.Code, p.Message)
		}
		if result.Valid {
			fmt.Fprintf(f.Writer, "✓ %d level(s) valid\n", result.Levels)
		}
	}
	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d level(s) invalid", len(result.Problems)))
	}
	return nil
}

// validateLevel checks a level's configuration, runs its answer with no
// tick budget, then opens it in a session to render the reference.
func validateLevel(ctx context.Context, cfg *level.Config) *LevelProblem {
	problem := func(code string, err error) *LevelProblem {
		return &LevelProblem{Level: cfg.ID, Code: code, Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return problem(ErrCodeConfiguration, err)
	}
	if cfg.Answer != "" {
		if _, err := engine.NewInterpreter(engine.WithUnlimitedTicks()).Run(ctx, cfg.Answer); err != nil {
			return problem(ErrCodeReference, err)
		}
	}
	editor := &programEditor{program: &ProgramFile{}, out: &OutputFormatter{}}
	if _, err := session.New(ctx, cfg, editor, session.WithLogger(discardLogger())); err != nil {
		if engine.IsRenderingUnavailable(err) {
			return problem(ErrCodeRendering, err)
		}
		return problem(ErrCodeGeneric, err)
	}
	return nil
}
