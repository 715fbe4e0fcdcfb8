package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/loader"
	"github.com/castrank/castrank/pkg/model"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot DIR",
		Short: "Copy the full ranking and role detail into a local directory",
		Long: `Fetch every page of the unfiltered ranking and the complete role detail,
and write them to DIR as people.jsonl and roles.jsonl. Point data_dir (or
--data-dir) at DIR to browse it offline; a running viewer reloads when the
files change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			src, err := openSource(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer src.Close()

			var (
				people []model.Person
				total  int
				roles  model.RolesPayload
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				people, total, err = fetchRows(ctx, src.Source, model.DefaultQuery(), 0, config.MaxPageSize)
				return err
			})
			g.Go(func() error {
				var err error
				roles, err = src.Source.Roles(ctx, model.RolesQuery{IncludeCount1: true})
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("fetch snapshot: %w", err)
			}
			if len(people) != total {
				logger.Warn().Int("rows", len(people)).Int("total", total).Msg("ranking ended before its reported total")
			}

			if err := loader.WriteSnapshot(dir, people, roles); err != nil {
				return err
			}
			logger.Info().Str("dir", dir).Int("people", len(people)).Int("roles", len(roles.Roles)).Msg("snapshot written")
			return nil
		},
	}
	return cmd
}
