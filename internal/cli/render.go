package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/turtle/internal/raster"
	"github.com/roach88/turtle/internal/session"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output string
	Width  int
	Height int
}

// RenderResult is the JSON form of a rendering.
type RenderResult struct {
	Level   string `json:"level"`
	Output  string `json:"output"`
	Actions int    `json:"actions"`
	Notice  string `json:"notice,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <level> [program]",
		Short: "Draw a program to a PNG file",
		Long: `Draw a program from a level's starting pose to a PNG file without
grading or recording it. Without a program the level's answer is drawn.

Examples:
  turtle render 1_1 -o answer.png
  turtle render 1_1 square.yaml -o square.png --width 800 --height 800`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "PNG file to write (required)")
	cmd.Flags().IntVar(&opts.Width, "width", raster.DefaultWidth, "canvas width")
	cmd.Flags().IntVar(&opts.Height, "height", raster.DefaultHeight, "canvas height")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func runRender(cmd *cobra.Command, opts *RenderOptions, args []string) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return f.fail(ExitCommandError, ErrCodeRendering, fmt.Sprintf("invalid canvas size %dx%d", opts.Width, opts.Height), nil)
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

	sess, err := openSession(ctx, cfg, &programEditor{program: program, out: f}, []session.Option{
		session.WithSurfaceFactory(session.RasterSurfaces(opts.Width, opts.Height)),
		session.WithLogger(opts.logger(cmd.ErrOrStderr())),
	}, f)
	if err != nil {
		return err
	}
	run, err := sess.RunProgram(ctx, session.Instant)
	if err != nil {
		return f.fail(ExitFailure, ErrCodeGeneric, "render interrupted", err)
	}
	if err := writePNG(sess, opts.Output); err != nil {
		return f.fail(ExitCommandError, ErrCodeRendering, "failed to write drawing", err)
	}

	result := RenderResult{Level: cfg.ID, Output: opts.Output, Notice: run.Notice}
	if run.Execution != nil {
		result.Actions = run.Execution.Log.Len()
	}
	if f.JSON() {
		return f.Success(result)
	}
	if result.Notice != "" {
		fmt.Fprintf(f.Writer, "! %s\n", result.Notice)
	}
	fmt.Fprintf(f.Writer, "Wrote %s (%d actions)\n", result.Output, result.Actions)
	return nil
}
