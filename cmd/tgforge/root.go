package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tgforge/internal/config"
	"tgforge/internal/logger"
	"tgforge/internal/pipeline"
)

// app carries what every command shares once flags are parsed.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	log     *logger.Logger
	out     io.Writer
	cfgFile string
	envFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "tgforge",
		Short: "Fetch, aggregate and export Telegram channel history",
		Long: `tgforge pages through Telegram channels within a date range, normalizes
messages, forwards and participants into tables, aggregates them and writes
CSV, Excel, Markdown, JSON and HTML exports.

Example usage:
  tgforge login --phone +4915112345678
  tgforge messages durov telegram --since 2024-03-01 --until 2024-03-31
  tgforge forwards -s durov --format csv,html
  tgforge participants mygroup --method messages
  tgforge serve --addr :8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()

			return a.init()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML configuration file (defaults apply when empty)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before TGFORGE_* variables are read")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("session", "", "session file")
	pf.String("output-dir", "", "directory for exported files")
	pf.StringSlice("format", nil, "export formats: csv, xlsx, md, json, html")
	pf.Int("page-size", 0, "items per page request (1-100)")
	pf.Int("page-delay", 0, "delay between page requests in milliseconds")

	for key, flag := range map[string]string{
		"logging.level":         "log-level",
		"telegram.session_file": "session",
		"output.dir":            "output-dir",
		"output.formats":        "format",
		"fetch.page_size":       "page-size",
		"fetch.page_delay_ms":   "page-delay",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newFetchCmd(a, pipeline.KindMessages),
		newFetchCmd(a, pipeline.KindForwards),
		newFetchCmd(a, pipeline.KindParticipants),
		newUsersCmd(a),
		newSubscriptionsCmd(a),
		newChannelsCmd(a),
		newServeCmd(a),
		newFormatCmd(a),
	)

	return root
}

// init loads .env, the config file and the TGFORGE_* overlay.
func (a *app) init() error {
	if err := config.LoadEnvFile(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgFile, a.v)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	a.log.Debug("Configuration loaded", "config", cfg.String())

	return nil
}
