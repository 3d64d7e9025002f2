// Package config provides configuration management for tgforge.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidAPIID             = errors.New("telegram.api_id must be a positive number")
	ErrMissingAPIHash           = errors.New("telegram.api_hash is required")
	ErrInvalidPhone             = errors.New("telegram.phone must look like +<country code><number>")
	ErrMissingSessionFile       = errors.New("telegram.session_file is required")
	ErrInvalidPageSize          = errors.New("fetch.page_size must be between 1 and 100")
	ErrInvalidPageDelay         = errors.New("fetch.page_delay_ms must be non-negative")
	ErrInvalidReplyLimit        = errors.New("fetch.reply_limit must be non-negative")
	ErrInvalidMemberPageSize    = errors.New("fetch.member_page_size must be between 1 and 200")
	ErrInvalidParticipantMethod = errors.New("fetch.participant_method must be 'default' or 'messages'")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidWeekStart         = errors.New("analytics.week_start must be a weekday name")
	ErrInvalidTopN              = errors.New("analytics.top_n must be at least 1")
	ErrMissingOutputDir         = errors.New("output.dir is required")
	ErrInvalidOutputFormat      = errors.New("output.formats entries must be one of: csv, xlsx, md, json, html")
	ErrInvalidRowLimit          = errors.New("output.markdown_row_limit must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidStore             = errors.New("server.store must be 'memory' or 'redis'")
	ErrMissingRedisURL          = errors.New("server.redis_url is required for the redis store")
)

// Participant collection methods.
const (
	ParticipantMethodDefault  = "default"
	ParticipantMethodMessages = "messages"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatMD   = "md"
	FormatJSON = "json"
	FormatHTML = "html"
)

var (
	validFormats = []string{FormatCSV, FormatXLSX, FormatMD, FormatJSON, FormatHTML}
	phonePattern = regexp.MustCompile(`^\+\d{6,15}$`)
)

// Config represents the complete tgforge configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Retry     RetryPolicy     `yaml:"retry"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
}

// TelegramConfig holds client credentials and session settings.
type TelegramConfig struct {
	APIHash           string `yaml:"api_hash"`
	Phone             string `yaml:"phone"`
	SessionFile       string `yaml:"session_file"`
	APIID             int    `yaml:"api_id"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

// FetchConfig controls paging.
type FetchConfig struct {
	ParticipantMethod string `yaml:"participant_method"`
	PageSize          int    `yaml:"page_size"`
	PageDelayMs       int    `yaml:"page_delay_ms"`
	ReplyLimit        int    `yaml:"reply_limit"`
	MemberPageSize    int    `yaml:"member_page_size"`
	IncludeComments   bool   `yaml:"include_comments"`
}

// RetryPolicy defines retry behavior for rate-limited requests.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	ExtraWaitMs       int     `yaml:"extra_wait_ms"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// AnalyticsConfig controls aggregate tables.
type AnalyticsConfig struct {
	WeekStart string `yaml:"week_start"`
	TopN      int    `yaml:"top_n"`
}

// OutputConfig defines export behavior.
type OutputConfig struct {
	Dir              string   `yaml:"dir"`
	Formats          []string `yaml:"formats"`
	MarkdownRowLimit int      `yaml:"markdown_row_limit"`
	CreateBackup     bool     `yaml:"create_backup"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig defines the HTTP API.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	Store        string `yaml:"store"`
	RedisURL     string `yaml:"redis_url"`
	ResultTTLSec int    `yaml:"result_ttl_sec"`
}

// Default returns a complete configuration with every default applied.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			SessionFile:       "tgforge.session",
			RequestTimeoutSec: 30,
		},
		Fetch: FetchConfig{
			ParticipantMethod: ParticipantMethodDefault,
			PageSize:          100,
			PageDelayMs:       1000,
			ReplyLimit:        100,
			MemberPageSize:    200,
			IncludeComments:   true,
		},
		Retry: RetryPolicy{
			MaxAttempts:       5,
			ExtraWaitMs:       1000,
			InitialDelayMs:    1000,
			MaxDelayMs:        60000,
			BackoffMultiplier: 2.0,
		},
		Analytics: AnalyticsConfig{
			WeekStart: "tuesday",
			TopN:      50,
		},
		Output: OutputConfig{
			Dir:              "./output",
			Formats:          []string{FormatCSV, FormatXLSX, FormatMD},
			MarkdownRowLimit: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			Store:        "memory",
			ResultTTLSec: 86400,
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default.
func LoadConfig(filepath string) (*Config, error) {
	return Load(filepath, nil)
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates everything except credentials, which only the commands
// talking to Telegram need.
func (c *Config) Validate() error {
	if c.Fetch.PageSize < 1 || c.Fetch.PageSize > 100 {
		return ErrInvalidPageSize
	}

	if c.Fetch.PageDelayMs < 0 {
		return ErrInvalidPageDelay
	}

	if c.Fetch.ReplyLimit < 0 {
		return ErrInvalidReplyLimit
	}

	if c.Fetch.MemberPageSize < 1 || c.Fetch.MemberPageSize > 200 {
		return ErrInvalidMemberPageSize
	}

	if c.Fetch.ParticipantMethod != ParticipantMethodDefault && c.Fetch.ParticipantMethod != ParticipantMethodMessages {
		return ErrInvalidParticipantMethod
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if _, err := ParseWeekday(c.Analytics.WeekStart); err != nil {
		return err
	}

	if c.Analytics.TopN < 1 {
		return ErrInvalidTopN
	}

	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}

	for _, f := range c.Output.Formats {
		if !slices.Contains(validFormats, f) {
			return fmt.Errorf("%w: %q", ErrInvalidOutputFormat, f)
		}
	}

	if c.Output.MarkdownRowLimit < 1 {
		return ErrInvalidRowLimit
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	switch c.Server.Store {
	case "memory":
	case "redis":
		if c.Server.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return ErrInvalidStore
	}

	return nil
}

// ValidateCredentials checks the settings needed to talk to Telegram.
func (c *Config) ValidateCredentials() error {
	if c.Telegram.APIID <= 0 {
		return ErrInvalidAPIID
	}

	if c.Telegram.APIHash == "" {
		return ErrMissingAPIHash
	}

	if c.Telegram.SessionFile == "" {
		return ErrMissingSessionFile
	}

	if c.Telegram.Phone != "" && !phonePattern.MatchString(c.Telegram.Phone) {
		return ErrInvalidPhone
	}

	return nil
}

// ParseAPIID converts a textual API id as typed by a user.
func ParseAPIID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, ErrInvalidAPIID
	}

	return id, nil
}

// ValidPhone reports whether s is an international phone number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// ParseWeekday resolves a weekday name such as "tuesday" or "Tue".
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekStart, name)
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if n == full || n == full[:3] {
			return d, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekStart, name)
}

// WeekStartDay returns the configured week start, defaulting to Tuesday.
func (a AnalyticsConfig) WeekStartDay() time.Weekday {
	d, err := ParseWeekday(a.WeekStart)
	if err != nil {
		return time.Tuesday
	}

	return d
}

// PageDelay returns the pause between two page requests.
func (f FetchConfig) PageDelay() time.Duration {
	return time.Duration(f.PageDelayMs) * time.Millisecond
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if rp.MaxDelayMs > 0 && int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// FloodWait returns how long to sleep before retrying a rate-limited request.
// A provider supplied wait is honored with the extra margin added; without
// one the exponential backoff applies.
func (rp *RetryPolicy) FloodWait(provider time.Duration, attempt int) time.Duration {
	if provider > 0 {
		return provider + time.Duration(rp.ExtraWaitMs)*time.Millisecond
	}

	if d := rp.GetRetryDelay(attempt + 1); d > 0 {
		return d
	}

	return time.Duration(rp.InitialDelayMs) * time.Millisecond
}

// RequestTimeout returns the per-request timeout.
func (t TelegramConfig) RequestTimeout() time.Duration {
	return time.Duration(t.RequestTimeoutSec) * time.Second
}

// ResultTTL returns how long finished runs are retained by the server.
func (s ServerConfig) ResultTTL() time.Duration {
	return time.Duration(s.ResultTTLSec) * time.Second
}

// WantsFormat reports whether the given export format is enabled.
func (o OutputConfig) WantsFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{PageSize: %d, MaxAttempts: %d, Output: %s, Formats: %v}",
		c.Fetch.PageSize,
		c.Retry.MaxAttempts,
		c.Output.Dir,
		c.Output.Formats,
	)
}
