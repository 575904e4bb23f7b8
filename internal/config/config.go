package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/ibeckermayer/xengage/internal/types"
)

const appName = "xengage"

// Run modes
const (
	ModeMatrix      = "matrix"
	ModePairwise    = "pairwise"
	ModeFirstDegree = "first-degree"
)

// Output formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version" yaml:"version"`
	Run      RunConfig      `toml:"run" yaml:"run"`
	Scraping ScrapingConfig `toml:"scraping" yaml:"scraping"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Schedule ScheduleConfig `toml:"schedule" yaml:"schedule"`
	Email    EmailConfig    `toml:"email" yaml:"email"`
	Store    StoreConfig    `toml:"store" yaml:"store"`
}

type RunConfig struct {
	SeedPostURL  string   `toml:"seed_post_url" yaml:"seed_post_url"`
	Targets      []string `toml:"targets" yaml:"targets"`
	Subjects     []string `toml:"subjects" yaml:"subjects"`
	Mode         string   `toml:"mode" yaml:"mode"`
	Ranked       bool     `toml:"ranked" yaml:"ranked"`
	OutputPath   string   `toml:"output_path" yaml:"output_path"`
	OutputFormat string   `toml:"output_format" yaml:"output_format"`
}

// TargetIdentities returns the configured target handles in order
func (r RunConfig) TargetIdentities() []types.Identity {
	return types.NormalizeHandles(r.Targets)
}

// SubjectIdentities returns the explicitly configured subjects, if any
func (r RunConfig) SubjectIdentities() []types.Identity {
	return types.NormalizeHandles(r.Subjects)
}

type ScrapingConfig struct {
	Headless          bool    `toml:"headless" yaml:"headless"`
	ScrollFraction    float64 `toml:"scroll_fraction" yaml:"scroll_fraction"`
	ScrollPauseMs     int     `toml:"scroll_pause_ms" yaml:"scroll_pause_ms"`
	ConfirmPauseMs    int     `toml:"confirm_pause_ms" yaml:"confirm_pause_ms"`
	MaxScrolls        int     `toml:"max_scrolls" yaml:"max_scrolls"`
	WaitTimeoutMs     int     `toml:"wait_timeout_ms" yaml:"wait_timeout_ms"`
	PairwiseTimeoutMs int     `toml:"pairwise_timeout_ms" yaml:"pairwise_timeout_ms"`
}

func (s ScrapingConfig) ScrollPause() time.Duration {
	return time.Duration(s.ScrollPauseMs) * time.Millisecond
}

func (s ScrapingConfig) ConfirmPause() time.Duration {
	return time.Duration(s.ConfirmPauseMs) * time.Millisecond
}

func (s ScrapingConfig) WaitTimeout() time.Duration {
	return time.Duration(s.WaitTimeoutMs) * time.Millisecond
}

func (s ScrapingConfig) PairwiseTimeout() time.Duration {
	return time.Duration(s.PairwiseTimeoutMs) * time.Millisecond
}

type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
	File  string `toml:"file" yaml:"file"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron" yaml:"cron"`
	Timezone string `toml:"timezone" yaml:"timezone"`
}

type EmailConfig struct {
	Enabled  bool   `toml:"enabled" yaml:"enabled"`
	Provider string `toml:"provider" yaml:"provider"`
	SMTPHost string `toml:"smtp_host" yaml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port" yaml:"smtp_port"`
	SMTPUser string `toml:"smtp_user" yaml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass,omitempty" yaml:"smtp_pass,omitempty"`
	FromAddr string `toml:"from_address" yaml:"from_address"`
	ToAddr   string `toml:"to_address" yaml:"to_address"`
}

type StoreConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Run: RunConfig{
			Targets:      []string{},
			Subjects:     []string{},
			Mode:         ModeMatrix,
			OutputPath:   "twitter_engagement.csv",
			OutputFormat: FormatCSV,
		},
		Scraping: ScrapingConfig{
			Headless:          true,
			ScrollFraction:    0.8,
			ScrollPauseMs:     1500,
			ConfirmPauseMs:    3000,
			MaxScrolls:        200,
			WaitTimeoutMs:     15000,
			PairwiseTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Schedule: ScheduleConfig{
			Cron:     "0 8 * * *",
			Timezone: "Local",
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
		Store: StoreConfig{
			Enabled: true,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the directory for step caches and the default database
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads the config file from ConfigPath, falling back to defaults when
// it does not exist. .env files and XENGAGE_* variables are applied on top.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		return cfg, cfg.finish()
	}
	return cfg, err
}

// LoadFile reads a TOML or YAML config file (by extension), then applies the
// environment.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		_, err = toml.Decode(string(data), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	loadDotEnv()
	if err := c.ApplyEnv(); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	c.normalize()
	return nil
}

// loadDotEnv loads .env from the working directory and the config dir.
// Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load(".env")
	if dir, err := ConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}
}

// ApplyEnv overrides file values with XENGAGE_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("XENGAGE_SEED_POST_URL"); v != "" {
		c.Run.SeedPostURL = v
	}
	if v := os.Getenv("XENGAGE_TARGETS"); v != "" {
		c.Run.Targets = splitList(v)
	}
	if v := os.Getenv("XENGAGE_SUBJECTS"); v != "" {
		c.Run.Subjects = splitList(v)
	}
	if v := os.Getenv("XENGAGE_MODE"); v != "" {
		c.Run.Mode = v
	}
	if v := os.Getenv("XENGAGE_OUTPUT"); v != "" {
		c.Run.OutputPath = v
	}
	if v := os.Getenv("XENGAGE_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("XENGAGE_HEADLESS: %w", err)
		}
		c.Scraping.Headless = b
	}
	if v := os.Getenv("XENGAGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("XENGAGE_SMTP_PASS"); v != "" {
		c.Email.SMTPPass = v
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) normalize() {
	c.Run.Targets = identitiesToStrings(c.Run.TargetIdentities())
	c.Run.Subjects = identitiesToStrings(c.Run.SubjectIdentities())
	c.Run.Mode = strings.ToLower(strings.TrimSpace(c.Run.Mode))
	c.Run.OutputFormat = strings.ToLower(strings.TrimSpace(c.Run.OutputFormat))
	if c.Run.OutputFormat == "" {
		c.Run.OutputFormat = FormatCSV
		if strings.EqualFold(filepath.Ext(c.Run.OutputPath), ".xlsx") {
			c.Run.OutputFormat = FormatXLSX
		}
	}
}

func identitiesToStrings(ids []types.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	var errs []error

	switch c.Run.Mode {
	case ModeMatrix, ModeFirstDegree:
		if c.Run.SeedPostURL == "" && (c.Run.Mode == ModeFirstDegree || len(c.Run.Subjects) == 0) {
			errs = append(errs, errors.New("run.seed_post_url is required"))
		}
		if c.Run.Mode == ModeMatrix && len(c.Run.Targets) == 0 {
			errs = append(errs, errors.New("run.targets must list at least one account"))
		}
	case ModePairwise:
		if c.Run.SeedPostURL == "" && len(c.Run.Subjects) == 0 {
			errs = append(errs, errors.New("pairwise mode needs run.subjects or run.seed_post_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid run.mode %q", c.Run.Mode))
	}

	if c.Run.SeedPostURL != "" {
		u, err := url.Parse(c.Run.SeedPostURL)
		if err != nil || u.Host == "" || !strings.Contains(u.Path, "/status/") {
			errs = append(errs, fmt.Errorf("run.seed_post_url %q is not a post URL", c.Run.SeedPostURL))
		}
	}
	if c.Run.OutputPath == "" {
		errs = append(errs, errors.New("run.output_path is required"))
	}
	if c.Run.OutputFormat != FormatCSV && c.Run.OutputFormat != FormatXLSX {
		errs = append(errs, fmt.Errorf("invalid run.output_format %q", c.Run.OutputFormat))
	}

	if c.Scraping.ScrollFraction <= 0 || c.Scraping.ScrollFraction > 1 {
		errs = append(errs, errors.New("scraping.scroll_fraction must be in (0, 1]"))
	}
	if c.Scraping.MaxScrolls <= 0 {
		errs = append(errs, errors.New("scraping.max_scrolls must be positive"))
	}
	if c.Scraping.ScrollPauseMs < 0 || c.Scraping.ConfirmPauseMs < 0 {
		errs = append(errs, errors.New("scraping pauses cannot be negative"))
	}
	if c.Scraping.WaitTimeoutMs <= 0 || c.Scraping.PairwiseTimeoutMs <= 0 {
		errs = append(errs, errors.New("scraping timeouts must be positive"))
	}

	validLogLevels := map[string]bool{
		"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true, "disabled": true, "off": true,
	}
	if !validLogLevels[strings.ToLower(strings.TrimSpace(c.Logging.Level))] {
		errs = append(errs, fmt.Errorf("invalid logging.level %q", c.Logging.Level))
	}

	if c.Email.Enabled {
		if c.Email.SMTPHost == "" || c.Email.ToAddr == "" {
			errs = append(errs, errors.New("email.smtp_host and email.to_address are required when email is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateSchedule checks the schedule section used by watch mode
func (c *Config) ValidateSchedule() error {
	var errs []error
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		errs = append(errs, fmt.Errorf("invalid schedule.cron %q: %w", c.Schedule.Cron, err))
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid schedule.timezone %q: %w", c.Schedule.Timezone, err))
	}
	return errors.Join(errs...)
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config as TOML to path
func (c *Config) SaveFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
