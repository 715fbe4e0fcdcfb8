package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/castrank/castrank/pkg/config"
	"github.com/castrank/castrank/pkg/loader"
	"github.com/castrank/castrank/pkg/logging"
	"github.com/castrank/castrank/pkg/remote"
	"github.com/castrank/castrank/pkg/store"
	"github.com/castrank/castrank/pkg/ui"
	"github.com/castrank/castrank/pkg/watcher"
)

var (
	// Global flags
	cfgFile     string
	debug       bool
	demo        bool
	dataDir     string
	rankingsURL string

	// logger is the stderr logger for plain subcommands. The TUI opens its
	// own file logger.
	logger *logging.Logger
)

// Version information, overridden with -ldflags at release time.
var (
	Version   = "v0.3.0-dev"
	BuildTime = "unknown"
)

const (
	// demoPeople is the size of the built-in demo ranking.
	demoPeople = 2500

	// demoLatency makes the demo source load like a real service.
	demoLatency = 120 * time.Millisecond

	// snapshotDebounce collapses the writes of one snapshot refresh.
	snapshotDebounce = 300 * time.Millisecond
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "castrank",
		Short: "Browse a people ranking in the terminal",
		Long: `castrank shows a ranking of people by credit count, loaded page by page
from a ranking service (or a local snapshot) as you scroll.

Run without a subcommand to open the viewer.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewCLI()
			logger.SetOutput(cmd.ErrOrStderr())
			if debug {
				logging.SetLevel("debug")
			}
		},
		RunE: runViewer,
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default ~/.castrank.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&demo, "demo", false, "Use built-in demo data instead of a service")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Serve a local snapshot directory instead of the service")
	root.PersistentFlags().StringVar(&rankingsURL, "rankings-url", "", "Ranking query endpoint (overrides config)")

	root.Version = Version + " (" + BuildTime + ")"

	root.AddCommand(
		newTopCmd(),
		newExportCmd(),
		newSnapshotCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves the configuration with command-line overrides bound
// on top of the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(cfgFile)
	if err != nil {
		return nil, err
	}
	for key, flag := range map[string]string{"data_dir": "data-dir", "rankings_url": "rankings-url"} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// sources is an opened data source plus what offline mode adds to it.
type sources struct {
	Source  remote.Source
	Changes <-chan struct{}
	Reload  func(context.Context) error

	closer func() error
}

func (s *sources) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// openSource picks the data source: demo data, a local snapshot, or the
// ranking service. interactive adds snapshot watching and demo latency.
func openSource(ctx context.Context, cfg *config.Config, log *logging.Logger, interactive bool) (*sources, error) {
	switch {
	case demo:
		people, roles := remote.DemoData(demoPeople, 1)
		mem := remote.NewMemory(people, roles)
		if interactive {
			mem.SetLatency(demoLatency)
		}
		log.Debug().Int("people", len(people)).Msg("using demo data")
		return &sources{Source: mem}, nil

	case cfg.DataDir != "":
		st, err := store.OpenDir(ctx, cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open snapshot %s: %w", cfg.DataDir, err)
		}
		dir := cfg.DataDir
		s := &sources{
			Source: st,
			Reload: func(ctx context.Context) error { return st.ImportDir(ctx, dir) },
			closer: st.Close,
		}
		if interactive {
			w := watcher.New(dir, []string{loader.PeopleFile, loader.RolesFile}, snapshotDebounce, log)
			changes, err := w.Run(ctx)
			if err != nil {
				st.Close()
				return nil, err
			}
			s.Changes = changes
		}
		log.Debug().Str("dir", dir).Msg("using local snapshot")
		return s, nil

	default:
		client, err := remote.NewClient(remote.Options{
			RankingsURL:       cfg.RankingsURL,
			RolesURL:          cfg.RolesURL,
			BootstrapURL:      cfg.BootstrapURL,
			Timeout:           cfg.HTTPTimeout,
			RetryMax:          cfg.RetryMax,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            log,
		})
		if err != nil {
			return nil, err
		}
		return &sources{Source: client}, nil
	}
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.NewTUI(cfg.LogFile)
	if err != nil {
		return err
	}
	defer log.Close()
	logging.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src, err := openSource(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer src.Close()

	m, err := ui.New(ui.Options{
		Source:  src.Source,
		Config:  cfg,
		Logger:  log,
		Changes: src.Changes,
		Reload:  src.Reload,
	})
	if err != nil {
		return err
	}

	log.Info().Str("version", Version).Msg("viewer starting")
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}
	if s, ok := final.(fmt.Stringer); ok {
		log.Info().Stringer("final", s).Msg("viewer closed")
	}
	if c, ok := src.Source.(*remote.Client); ok {
		totals := c.Metrics()
		log.Info().Int64("requests", totals.Requests).Int64("failures", totals.Failures).Int64("shared", totals.Shared).Msg("http totals")
	}
	return nil
}
