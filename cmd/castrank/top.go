package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/castrank/castrank/pkg/model"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 100

func newTopCmd() *cobra.Command {
	var (
		limit      int
		search     string
		sortCol    string
		sortDir    string
		activeOnly bool
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the first rows of the ranking",
		Example: `  castrank top -n 50
  castrank top --search smith --sort name
  castrank --demo top --active`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			q, err := buildQuery(cfg, search, sortCol, sortDir, activeOnly)
			if err != nil {
				return err
			}
			src, err := openSource(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer src.Close()

			people, total, err := fetchRows(cmd.Context(), src.Source, q, limit, cfg.PageSize)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return writeTable(out, people, total, terminalWidth(out))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to print")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only people whose name matches")
	cmd.Flags().StringVar(&sortCol, "sort", "", "Sort column (count, name, num_shows, num_titles, top_role, top_subcategory, top_category, last_credit_date)")
	cmd.Flags().StringVar(&sortDir, "dir", "", "Sort direction (asc or desc)")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only people with a recent credit")
	return cmd
}

// terminalWidth returns the width of w if it is a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			return cols
		}
	}
	return defaultWidth
}

// writeTable prints people as fixed-width columns fitted to width. The top
// role column is only shown when there is room for it.
func writeTable(w io.Writer, people []model.Person, total, width int) error {
	const rankW, countW, showsW, roleW = 6, 8, 6, 28
	nameW := width - rankW - countW - showsW - 3
	showRole := width >= defaultWidth
	if showRole {
		nameW -= roleW + 1
	}
	nameW = max(nameW, 10)

	line := func(rank, name, count, shows, role string) string {
		cells := []string{
			runewidth.FillLeft(rank, rankW),
			runewidth.FillRight(runewidth.Truncate(name, nameW, "…"), nameW),
			runewidth.FillLeft(count, countW),
			runewidth.FillLeft(shows, showsW),
		}
		if showRole {
			cells = append(cells, runewidth.Truncate(role, roleW, "…"))
		}
		return strings.TrimRight(strings.Join(cells, " "), " ")
	}

	var b strings.Builder
	b.WriteString(line("#", "Name", "Credits", "Shows", "Top role"))
	b.WriteByte('\n')
	for i, p := range people {
		role := p.TopRole
		if role != "" {
			role += " (" + strconv.Itoa(p.TopRoleCount) + ")"
		}
		b.WriteString(line(strconv.Itoa(i+1), p.Name, strconv.Itoa(p.Count), strconv.Itoa(p.NumShows), role))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "showing %d of %d\n", len(people), total)

	_, err := io.WriteString(w, b.String())
	return err
}
