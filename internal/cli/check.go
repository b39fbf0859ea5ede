package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/turtle/internal/engine"
	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/level"
	"github.com/roach88/turtle/internal/session"
	"github.com/roach88/turtle/internal/store"
)

// DefaultSessionID identifies CLI learners unless --session says otherwise.
const DefaultSessionID = "cli"

// CheckOptions holds flags shared by check and run.
type CheckOptions struct {
	*RootOptions
	Database string // record attempts here when set
	Session  string
	Output   string // write the drawing as PNG when set
}

// Grade is the JSON form of a graded run.
type Grade struct {
	Level       string   `json:"level"`
	Session     string   `json:"session"`
	Attempt     int64    `json:"attempt"`
	Tier        ir.Tier  `json:"tier"`
	Stars       int      `json:"stars"`
	Succeeded   bool     `json:"succeeded"`
	Headline    string   `json:"headline"`
	Hints       []string `json:"hints,omitempty"`
	Notice      string   `json:"notice,omitempty"`
	Delta       int      `json:"delta"`
	NodesUsed   int      `json:"nodes_used"`
	ColoursUsed []string `json:"colours_used,omitempty"`
	Actions     int      `json:"actions"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <level> [program]",
		Short: "Grade a program instantly",
		Long: `Run a program on a level without pacing and print its grade.

The program is either YAML (source and nodes) or bare compiled source.
Without a program the level's answer is graded.

Exit codes:
  0 - The program completed the level
  1 - The program did not complete the level
  2 - Command error (unknown level, unreadable program, etc.)

Examples:
  turtle check 1_1 square.yaml
  turtle check 1_1 square.js --db ./turtle.db --session alice
  turtle check 3_7 house.yaml -o house.png --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd, opts, args, session.Instant, nil)
		},
	}
	addGradeFlags(cmd, opts)
	return cmd
}

func addGradeFlags(cmd *cobra.Command, opts *CheckOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the attempt in this SQLite database")
	cmd.Flags().StringVar(&opts.Session, "session", DefaultSessionID, "learner session id")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the drawing to a PNG file")
}

// runGrade opens a session, runs the program in mode and prints the grade.
func runGrade(cmd *cobra.Command, opts *CheckOptions, args []string, mode session.Mode, extra []session.Option) error {
	f := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pack, err := loadPack(opts.RootOptions, f)
	if err != nil {
		return err
	}
	cfg, err := getLevel(pack, args[0], f)
	if err != nil {
		return err
	}
	program, err := loadProgram(args[1:], cfg, f)
	if err != nil {
		return err
	}

	sessOpts := []session.Option{
		session.WithID(opts.Session),
		session.WithLogger(logger),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		last, err := st.LastAttempt(ctx, opts.Session, cfg.ID)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeStore, "failed to read attempts", err)
		}
		sessOpts = append(sessOpts, session.WithReporter(st), session.WithClock(engine.NewClockAt(last)))
	}
	sessOpts = append(sessOpts, extra...)

	sess, err := openSession(ctx, cfg, &programEditor{program: program, out: f}, sessOpts, f)
	if err != nil {
		return err
	}

	run, err := sess.RunProgram(ctx, mode)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "run interrupted", err)
	}
	res, err := run.Wait(ctx)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "run interrupted", err)
	}

	if opts.Output != "" {
		if err := writePNG(sess, opts.Output); err != nil {
			return f.fail(ExitCommandError, ErrCodeRendering, "failed to write drawing", err)
		}
		f.VerboseLog("Wrote %s", opts.Output)
	}

	grade := gradeOf(cfg, sess, run, res)
	if err := printGrade(f, grade); err != nil {
		return err
	}
	if !grade.Succeeded && !cfg.FreePlay {
		return NewExitError(ExitFailure, fmt.Sprintf("level %s not completed: %s", cfg.ID, grade.Tier))
	}
	return nil
}

// openSession maps session errors to exit codes.
func openSession(ctx context.Context, cfg *level.Config, ed session.Editor, opts []session.Option, f *OutputFormatter) (*session.Session, error) {
	sess, err := session.New(ctx, cfg, ed, opts...)
	switch {
	case err == nil:
		return sess, nil
	case engine.IsRenderingUnavailable(err):
		return nil, f.fail(ExitCommandError, ErrCodeRendering, "rendering unavailable", err)
	case engine.IsConfigurationError(err):
		return nil, f.fail(ExitCommandError, ErrCodeConfiguration, fmt.Sprintf("level %s is misconfigured", cfg.ID), err)
	default:
		return nil, f.fail(ExitCommandError, ErrCodeGeneric, "failed to open level", err)
	}
}

func gradeOf(cfg *level.Config, sess *session.Session, run *session.Run, res session.Result) Grade {
	g := Grade{
		Level:       cfg.ID,
		Session:     sess.ID(),
		Attempt:     run.Attempt,
		Tier:        res.Outcome.Tier,
		Stars:       res.Feedback.Stars,
		Succeeded:   res.Outcome.Succeeded(),
		Headline:    res.Feedback.Headline,
		Hints:       res.Feedback.Hints,
		Notice:      run.Notice,
		Delta:       res.Outcome.Delta,
		NodesUsed:   res.Outcome.NodesUsed,
		ColoursUsed: res.State.ColoursUsed,
	}
	if run.Execution != nil {
		g.Actions = run.Execution.Log.Len()
	}
	return g
}

func printGrade(f *OutputFormatter, g Grade) error {
	if f.JSON() {
		return f.Success(g)
	}
	w := f.Writer
	if g.Notice != "" {
		fmt.Fprintf(w, "! %s\n", g.Notice)
	}
	mark := "✗"
	if g.Succeeded {
		mark = "✓"
	}
	fmt.Fprintf(w, "%s Level %s, attempt %d: %s %s\n", mark, g.Level, g.Attempt, g.Tier, starString(g.Stars))
	if g.Headline != "" {
		fmt.Fprintf(w, "  %s\n", g.Headline)
	}
	for _, h := range g.Hints {
		fmt.Fprintf(w, "  - %s\n", h)
	}
	f.VerboseLog("actions=%d nodes_used=%d delta=%d colours=%v", g.Actions, g.NodesUsed, g.Delta, g.ColoursUsed)
	return nil
}

func starString(n int) string {
	if n < 0 {
		n = 0
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", max(0, 3-n))
}

// writePNG saves the session's surface.
func writePNG(sess *session.Session, path string) error {
	enc, ok := sess.Surface().(interface{ WritePNG(io.Writer) error })
	if !ok {
		return engine.NewRenderingUnavailable("surface cannot encode PNG")
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := enc.WritePNG(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// discardLogger is used where a command has no log output of its own.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
