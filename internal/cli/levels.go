package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// LevelInfo is one row of the levels command.
type LevelInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title,omitempty"`
	Ideal      int     `json:"ideal,omitempty"`
	Tolerance  int     `json:"tolerance"`
	Speed      float64 `json:"speed"`
	FreePlay   bool    `json:"free_play,omitempty"`
	FinalLevel bool    `json:"final_level,omitempty"`
	CarryFrom  string  `json:"carry_from,omitempty"`
	CarryTo    string  `json:"carry_to,omitempty"`
}

// NewLevelsCommand creates the levels command.
func NewLevelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List levels",
		Long: `List the levels of the builtin pack, or of --levels when given.

Examples:
  turtle levels
  turtle levels --levels ./my-levels --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLevels(cmd, rootOpts)
		},
	}
}

func runLevels(cmd *cobra.Command, opts *RootOptions) error {
	f := opts.formatter(cmd)
	pack, err := loadPack(opts, f)
	if err != nil {
		return err
	}

	infos := make([]LevelInfo, 0, pack.Len())
	for _, id := range pack.IDs() {
		cfg, err := pack.Get(id)
		if err != nil {
			return f.fail(ExitCommandError, ErrCodeGeneric, "level lookup failed", err)
		}
		infos = append(infos, LevelInfo{
			ID:         cfg.ID,
			Title:      cfg.Title,
			Ideal:      cfg.Ideal,
			Tolerance:  cfg.Tolerance,
			Speed:      cfg.Speed,
			FreePlay:   cfg.FreePlay,
			FinalLevel: cfg.FinalLevel,
			CarryFrom:  cfg.CarryFrom,
			CarryTo:    cfg.CarryTo,
		})
	}

	if f.JSON() {
		return f.Success(infos)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tIDEAL\tTOLERANCE\tNOTES")
	for _, l := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", l.ID, l.Title, l.Ideal, l.Tolerance, levelNotes(l))
	}
	return tw.Flush()
}

func levelNotes(l LevelInfo) string {
	var notes []string
	if l.FreePlay {
		notes = append(notes, "free play")
	}
	if l.FinalLevel {
		notes = append(notes, "final")
	}
	if l.CarryFrom != "" {
		notes = append(notes, "continues "+l.CarryFrom)
	}
	if l.CarryTo != "" {
		notes = append(notes, "saves "+l.CarryTo)
	}
	return strings.Join(notes, ", ")
}
