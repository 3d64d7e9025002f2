package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tgforge/pkg/utils"
)

// EnvPrefix prefixes every environment override, e.g. TGFORGE_TELEGRAM_API_ID.
const EnvPrefix = "TGFORGE"

// NewViper returns a viper instance reading TGFORGE_* variables. Keys use the
// "section.field" form of the YAML file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadEnvFile loads variables from a dotenv file. A missing file is ignored;
// variables already set in the environment win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// Load builds the configuration: defaults, then the YAML file if path is not
// empty, then every key set in v (environment or bound flags). The result is
// validated.
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if v != nil {
		cfg.Overlay(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Overlay copies every key set in v onto c.
func (c *Config) Overlay(v *viper.Viper) {
	setInt(v, "telegram.api_id", &c.Telegram.APIID)
	setString(v, "telegram.api_hash", &c.Telegram.APIHash)
	setString(v, "telegram.phone", &c.Telegram.Phone)
	setString(v, "telegram.session_file", &c.Telegram.SessionFile)
	setInt(v, "telegram.request_timeout_sec", &c.Telegram.RequestTimeoutSec)

	setString(v, "fetch.participant_method", &c.Fetch.ParticipantMethod)
	setInt(v, "fetch.page_size", &c.Fetch.PageSize)
	setInt(v, "fetch.page_delay_ms", &c.Fetch.PageDelayMs)
	setInt(v, "fetch.reply_limit", &c.Fetch.ReplyLimit)
	setInt(v, "fetch.member_page_size", &c.Fetch.MemberPageSize)
	setBool(v, "fetch.include_comments", &c.Fetch.IncludeComments)

	setInt(v, "retry.max_attempts", &c.Retry.MaxAttempts)
	setInt(v, "retry.extra_wait_ms", &c.Retry.ExtraWaitMs)

	setString(v, "analytics.week_start", &c.Analytics.WeekStart)
	setInt(v, "analytics.top_n", &c.Analytics.TopN)

	setString(v, "output.dir", &c.Output.Dir)
	setInt(v, "output.markdown_row_limit", &c.Output.MarkdownRowLimit)
	setBool(v, "output.create_backup", &c.Output.CreateBackup)

	if v.IsSet("output.formats") {
		c.Output.Formats = stringList(v.Get("output.formats"))
	}

	setString(v, "logging.level", &c.Logging.Level)
	setString(v, "logging.format", &c.Logging.Format)

	setString(v, "server.addr", &c.Server.Addr)
	setString(v, "server.store", &c.Server.Store)
	setString(v, "server.redis_url", &c.Server.RedisURL)
	setInt(v, "server.result_ttl_sec", &c.Server.ResultTTLSec)
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}

// stringList accepts both slice flags and comma separated variables.
func stringList(val any) []string {
	switch x := val.(type) {
	case []string:
		return utils.SplitList(x...)
	case string:
		return utils.SplitList(strings.Trim(x, "[]"))
	default:
		return utils.SplitList(fmt.Sprint(x))
	}
}
