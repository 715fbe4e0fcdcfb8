// Package config loads castrank settings from ~/.castrank.yaml, CASTRANK_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/castrank/castrank/pkg/listview"
	"github.com/castrank/castrank/pkg/model"
)

const (
	// FileName is the config file name without extension.
	FileName = ".castrank"

	// EnvPrefix prefixes environment overrides, e.g. CASTRANK_PAGE_SIZE.
	EnvPrefix = "CASTRANK"

	// MaxPageSize matches the largest page the query endpoint serves.
	MaxPageSize = model.MaxPerPage

	// PlaceholderPID is the identity baked into a profile link template
	// that was generated for person 0.
	PlaceholderPID = "0"
)

// Config is the resolved configuration.
type Config struct {
	RankingsURL       string        `mapstructure:"rankings_url" yaml:"rankings_url"`
	RolesURL          string        `mapstructure:"roles_url" yaml:"roles_url"`
	BootstrapURL      string        `mapstructure:"bootstrap_url" yaml:"bootstrap_url,omitempty"`
	InitialTotal      int           `mapstructure:"initial_total" yaml:"initial_total"`
	DefaultSortCol    string        `mapstructure:"default_sort_col" yaml:"default_sort_col"`
	DefaultSortDir    string        `mapstructure:"default_sort_dir" yaml:"default_sort_dir"`
	PageSize          int           `mapstructure:"page_size" yaml:"page_size"`
	ProfileURL        string        `mapstructure:"profile_url_template" yaml:"profile_url_template"`
	RenderMode        string        `mapstructure:"render_mode" yaml:"render_mode"`
	SimpleThreshold   int           `mapstructure:"simple_threshold" yaml:"simple_threshold"`
	SearchDebounce    time.Duration `mapstructure:"search_debounce" yaml:"search_debounce"`
	DataDir           string        `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	LogFile           string        `mapstructure:"log_file" yaml:"log_file,omitempty"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	RetryMax          int           `mapstructure:"retry_max" yaml:"retry_max"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RankingsURL:       "http://localhost:5000/api/rankings",
		RolesURL:          "http://localhost:5000/api/roles",
		BootstrapURL:      "http://localhost:5000/api/bootstrap",
		InitialTotal:      listview.UnknownTotal,
		DefaultSortCol:    string(model.SortCount),
		DefaultSortDir:    string(model.SortDesc),
		PageSize:          100,
		ProfileURL:        "https://www.camdram.net/people/{slug}",
		RenderMode:        string(listview.ModeVirtual),
		SimpleThreshold:   listview.DefaultSimpleThreshold,
		SearchDebounce:    listview.SearchDebounce,
		LogFile:           "~/.castrank/castrank.log",
		LogLevel:          "info",
		RequestsPerSecond: 10,
		HTTPTimeout:       10 * time.Second,
		RetryMax:          3,
	}
}

// New returns a viper instance with defaults, the config search path and
// environment overrides registered. override, if set, is an explicit
// config file path.
func New(override string) (*viper.Viper, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("rankings_url", d.RankingsURL)
	v.SetDefault("roles_url", d.RolesURL)
	v.SetDefault("bootstrap_url", d.BootstrapURL)
	v.SetDefault("initial_total", d.InitialTotal)
	v.SetDefault("default_sort_col", d.DefaultSortCol)
	v.SetDefault("default_sort_dir", d.DefaultSortDir)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("profile_url_template", d.ProfileURL)
	v.SetDefault("render_mode", d.RenderMode)
	v.SetDefault("simple_threshold", d.SimpleThreshold)
	v.SetDefault("search_debounce", d.SearchDebounce)
	v.SetDefault("data_dir", "")
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("requests_per_second", d.RequestsPerSecond)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("retry_max", d.RetryMax)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if override != "" {
		path, err := homedir.Expand(override)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(override != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes and validates v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is New followed by FromViper.
func Load(override string) (*Config, error) {
	v, err := New(override)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Normalize clamps numeric settings, expands paths and checks URLs.
func (c *Config) Normalize() error {
	if c.PageSize < 1 {
		c.PageSize = 1
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.InitialTotal < 0 {
		c.InitialTotal = listview.UnknownTotal
	}
	if c.SearchDebounce <= 0 {
		c.SearchDebounce = listview.SearchDebounce
	}
	if c.SimpleThreshold <= 0 {
		c.SimpleThreshold = listview.DefaultSimpleThreshold
	}
	if _, err := listview.NewRenderer(listview.Mode(c.RenderMode), c.SimpleThreshold); err != nil {
		return fmt.Errorf("invalid render_mode: %w", err)
	}
	if !model.SortColumn(c.DefaultSortCol).IsValid() {
		return fmt.Errorf("invalid default_sort_col %q", c.DefaultSortCol)
	}

	var err error
	if c.DataDir, err = expand(c.DataDir); err != nil {
		return err
	}
	if c.LogFile, err = expand(c.LogFile); err != nil {
		return err
	}

	if c.DataDir == "" {
		for name, raw := range map[string]string{"rankings_url": c.RankingsURL, "roles_url": c.RolesURL} {
			if err := checkURL(raw); err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
		}
	}
	return nil
}

// DefaultQuery is the query the table opens with.
func (c *Config) DefaultQuery() model.QuerySpec {
	col := model.SortColumn(c.DefaultSortCol)
	dir := model.SortDirection(strings.ToLower(c.DefaultSortDir))
	if !dir.IsValid() {
		dir = col.DefaultDirection()
	}
	return model.QuerySpec{SortColumn: col, SortDir: dir}.Normalized()
}

// ProfileLink fills the profile template for p. The template may use
// {pid} and {slug}; a template generated for person 0 has its trailing
// "/0" replaced by the pid instead.
func (c *Config) ProfileLink(p model.RankedPerson) string {
	tmpl := c.ProfileURL
	if tmpl == "" {
		return ""
	}
	if strings.Contains(tmpl, "{pid}") || strings.Contains(tmpl, "{slug}") {
		r := strings.NewReplacer(
			"{pid}", strconv.FormatInt(p.PID, 10),
			"{slug}", url.PathEscape(p.Slug),
		)
		return r.Replace(tmpl)
	}
	base, query, _ := strings.Cut(tmpl, "?")
	trimmed := strings.TrimSuffix(base, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && trimmed[idx+1:] == PlaceholderPID {
		base = trimmed[:idx+1] + strconv.FormatInt(p.PID, 10) + base[len(trimmed):]
	}
	if query != "" {
		return base + "?" + query
	}
	return base
}

// Write saves cfg as YAML at path, creating the directory.
func Write(path string, cfg *Config) error {
	path, err := expand(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DefaultPath is ~/.castrank.yaml.
func DefaultPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return FileName + ".yaml"
	}
	return filepath.Join(home, FileName+".yaml")
}

func expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	out, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", path, err)
	}
	return out, nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}
