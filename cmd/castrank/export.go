package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/castrank/castrank/pkg/export"
	"github.com/castrank/castrank/pkg/model"
)

func newExportCmd() *cobra.Command {
	var (
		output     string
		format     string
		title      string
		role       string
		limit      int
		search     string
		sortCol    string
		sortDir    string
		activeOnly bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save a bar chart of the top of the ranking",
		Long: `Save a bar chart of credit counts for the first rows of the ranking, or
for the people ranked in one role. The format follows the output file's
extension (.svg or .png) unless --format is given.`,
		Example: `  castrank export -o top.svg
  castrank export -o directors.png --role Director -n 15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts := export.ChartOptions{Path: output, Format: format, Title: title, TopN: limit}
			if _, err := export.ResolveFormat(opts); err != nil {
				return err
			}

			src, err := openSource(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer src.Close()

			if role != "" {
				payload, err := src.Source.Roles(cmd.Context(), model.RolesQuery{IncludeCount1: true, ActiveOnly: activeOnly})
				if err != nil {
					return err
				}
				people, ok := payload.ByRole[role]
				if !ok {
					return fmt.Errorf("no role named %q", role)
				}
				opts.Bars = export.BarsFromRanked(people, limit)
				if opts.Title == "" {
					opts.Title = "Most credited: " + role
				}
			} else {
				q, err := buildQuery(cfg, search, sortCol, sortDir, activeOnly)
				if err != nil {
					return err
				}
				people, _, err := fetchRows(cmd.Context(), src.Source, q, limit, cfg.PageSize)
				if err != nil {
					return err
				}
				opts.Bars = export.BarsFromPeople(people, limit)
				if opts.Title == "" {
					opts.Title = "Most credited people"
				}
			}

			if err := export.SaveChart(opts); err != nil {
				return err
			}
			logger.Info().Str("path", output).Int("bars", min(len(opts.Bars), limit)).Msg("chart written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "castrank.svg", "Output file")
	cmd.Flags().StringVar(&format, "format", "", "Chart format (svg or png)")
	cmd.Flags().StringVar(&title, "title", "", "Chart title")
	cmd.Flags().StringVar(&role, "role", "", "Chart the people ranked in this role")
	cmd.Flags().IntVarP(&limit, "limit", "n", export.DefaultTopN, "Number of bars")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only people whose name matches")
	cmd.Flags().StringVar(&sortCol, "sort", "", "Sort column")
	cmd.Flags().StringVar(&sortDir, "dir", "", "Sort direction (asc or desc)")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only people with a recent credit")
	return cmd
}
