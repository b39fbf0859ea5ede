package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/turtle/internal/session"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	CheckOptions
	Speed float64 // 0 keeps the level's speed
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{CheckOptions: CheckOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run <level> [program]",
		Short: "Replay a program at drawing speed",
		Long: `Run a program on a level, replaying one action per step at the
level's speed, then print its grade.

Speed is a fraction in [0,1]: 0 is slowest, 1 fastest. With --verbose
each replayed block id is printed as it runs. Ctrl-C cancels the replay
and nothing is graded.

Examples:
  turtle run 1_1 square.yaml
  turtle run 1_9 circle.yaml --speed 1 -v
  turtle run 3_7 house.yaml --db ./turtle.db --session alice`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			var extra []session.Option
			if cmd.Flags().Changed("speed") {
				extra = append(extra, session.WithSpeed(opts.Speed))
			}
			return runGrade(cmd, &opts.CheckOptions, args, session.Paced, extra)
		},
	}
	addGradeFlags(cmd, &opts.CheckOptions)
	cmd.Flags().Float64Var(&opts.Speed, "speed", 0, "replay speed in [0,1] (default: the level's speed)")
	return cmd
}
