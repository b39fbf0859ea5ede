package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/store"
)

// AttemptsOptions holds flags for the attempts command.
type AttemptsOptions struct {
	*RootOptions
	Database string
	Level    string
	Session  string
	Tier     string
	Summary  bool
}

// TierCount is one row of the attempts summary.
type TierCount struct {
	Tier  ir.Tier `json:"tier"`
	Count int     `json:"count"`
}

// NewAttemptsCommand creates the attempts command.
func NewAttemptsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttemptsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recorded attempts",
		Long: `List the attempts recorded in an attempt database, oldest first
within each learner, or summarise them by tier.

Examples:
  turtle attempts --db ./turtle.db
  turtle attempts --db ./turtle.db --level 1_1 --summary
  turtle attempts --db ./turtle.db --session alice --tier AllPass
  turtle attempts --db ./turtle.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttempts(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Level, "level", "", "only this level")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only this learner session")
	cmd.Flags().StringVar(&opts.Tier, "tier", "", "only attempts graded at this tier, e.g. AllPass")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "count attempts per tier instead of listing them")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runAttempts(cmd *cobra.Command, opts *AttemptsOptions) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening would create an empty database.
	if _, err := os.Stat(opts.Database); err != nil {
		return f.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	if opts.Summary {
		return printTierCounts(ctx, f, st, opts.Level)
	}

	filter := store.AttemptFilter{LevelID: opts.Level, SessionID: opts.Session}
	if opts.Tier != "" {
		tier, err := ir.ParseTier(opts.Tier)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeGeneric, "invalid --tier", err)
		}
		filter.Tier = &tier
	}
	attempts, err := st.FindAttempts(ctx, filter)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to list attempts", err)
	}
	if f.JSON() {
		return f.Success(attempts)
	}
	if len(attempts) == 0 {
		fmt.Fprintln(f.Writer, "No attempts recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tSESSION\tATTEMPT\tTIER\tSUCCEEDED\tELAPSED")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%t\t%.1fs\n",
			a.LevelID, a.SessionID, a.Attempt, a.Tier, a.Succeeded, float64(a.ElapsedMs)/1000)
	}
	return tw.Flush()
}

func printTierCounts(ctx context.Context, f *OutputFormatter, st *store.Store, levelID string) error {
	counts, err := st.TierCounts(ctx, levelID)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeStore, "failed to count attempts", err)
	}
	rows := make([]TierCount, 0, len(counts))
	for tier, n := range counts {
		rows = append(rows, TierCount{Tier: tier, Count: n})
	}
	// best tiers first
	slices.SortFunc(rows, func(a, b TierCount) int { return int(b.Tier) - int(a.Tier) })

	if f.JSON() {
		return f.Success(rows)
	}
	total := 0
	for _, r := range rows {
		fmt.Fprintf(f.Writer, "%-30s %d\n", r.Tier, r.Count)
		total += r.Count
	}
	fmt.Fprintf(f.Writer, "%-30s %d\n", "total", total)
	return nil
}
