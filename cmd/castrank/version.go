package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/castrank/castrank/pkg/updater"
)

func newVersionCmd() *cobra.Command {
	var (
		check       bool
		releasesURL string
	)
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "castrank %s (built %s, %s %s/%s)\n",
				Version, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			if !check {
				return nil
			}
			rel, newer, err := updater.CheckForUpdates(cmd.Context(), releasesURL, Version)
			if err != nil {
				return fmt.Errorf("check for updates: %w", err)
			}
			if newer {
				fmt.Fprintf(out, "%s is available: %s\n", rel.TagName, rel.HTMLURL)
			} else {
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check for a newer release")
	cmd.Flags().StringVar(&releasesURL, "releases-url", updater.DefaultReleasesURL, "Latest-release endpoint")
	return cmd
}
