package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/listview"
)

func newInitCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file",
		Long: `Ask for the service endpoints and viewer settings and write them to the
configuration file (--config, or ~/.castrank.yaml). Existing settings are
offered as the answers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if loaded, err := loadConfig(cmd); err == nil {
				cfg = *loaded
			} else {
				logger.Debug().Err(err).Msg("starting from defaults")
			}
			path := cfgFile
			if path == "" {
				path = config.DefaultPath()
			}

			if !yes {
				form, apply := initForm(&cfg)
				if err := form.Run(); err != nil {
					return err
				}
				if err := apply(); err != nil {
					return err
				}
			}
			if err := cfg.Normalize(); err != nil {
				return err
			}
			if err := config.Write(path, &cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Write the current settings without asking")
	return cmd
}

// initForm builds the prompts for cfg. apply copies the answers that are
// not plain strings back into cfg once the form has run.
func initForm(cfg *config.Config) (form *huh.Form, apply func() error) {
	pageSize := strconv.Itoa(cfg.PageSize)
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Ranking endpoint").
				Description("Serves pages of the ranking").
				Value(&cfg.RankingsURL).
				Validate(validURL),
			huh.NewInput().
				Title("Roles endpoint").
				Value(&cfg.RolesURL).
				Validate(validURL),
			huh.NewInput().
				Title("Bootstrap endpoint").
				Description("Optional").
				Value(&cfg.BootstrapURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					return validURL(s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Profile link template").
				Description("{pid} and {slug} are replaced with the person's").
				Value(&cfg.ProfileURL),
			huh.NewSelect[string]().
				Title("Table rendering").
				Options(
					huh.NewOption("Windowed (loads pages as you scroll)", string(listview.ModeVirtual)),
					huh.NewOption("Simple (grows the list as you scroll)", string(listview.ModeSimple)),
				).
				Value(&cfg.RenderMode),
			huh.NewInput().
				Title("Page size").
				Value(&pageSize).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 || n > config.MaxPageSize {
						return fmt.Errorf("enter a number from 1 to %d", config.MaxPageSize)
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeDracula())

	apply = func() error {
		n, err := strconv.Atoi(strings.TrimSpace(pageSize))
		if err != nil {
			return fmt.Errorf("invalid page size %q", pageSize)
		}
		cfg.PageSize = n
		return nil
	}
	return form, apply
}

func validURL(s string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("enter an http or https URL")
	}
	return nil
}
