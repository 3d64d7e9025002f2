// Package lookup serves the one-shot queries that need no pagination: user
// profiles, the account's subscriptions and channel metadata.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tgforge/internal/config"
	"tgforge/internal/crawler"
	"tgforge/internal/logger"
	"tgforge/internal/models"
)

// ErrNoIdentifiers is returned when a lookup gets an empty input list.
var ErrNoIdentifiers = errors.New("at least one identifier is required")

// Table names.
const (
	TableUsers       = "Users"
	TableChannels    = "Channels"
	TableGroups      = "Groups"
	TableChannelInfo = "Channel Info"
	TableErrors      = "Lookup Errors"
)

// UserSource fetches single user profiles.
type UserSource interface {
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
}

// DialogSource lists the chats the account is a member of.
type DialogSource interface {
	Dialogs(ctx context.Context) ([]models.ChannelInfo, error)
}

// ChannelSource resolves and describes channels.
type ChannelSource interface {
	crawler.Resolver
	crawler.InfoSource
}

// Client is everything lookups need from the platform.
type Client interface {
	UserSource
	DialogSource
	ChannelSource
}

// Result holds the tables of one lookup. Failed inputs are kept in Errors.
type Result struct {
	Tables []models.Table       `json:"tables"`
	Errors []models.LookupError `json:"errors"`
	Stats  crawler.LedgerStats  `json:"stats"`
}

// Table returns the named table.
func (r *Result) Table(name string) (models.Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}

	return models.Table{}, false
}

// Service runs lookups with the same rate-limit handling as fetch runs.
type Service struct {
	client Client
	policy *config.RetryPolicy
	log    *logger.Logger
	sleep  crawler.SleepFunc
}

// Option configures a Service.
type Option func(*Service)

// WithSleep replaces the rate-limit sleep, for tests.
func WithSleep(sleep crawler.SleepFunc) Option {
	return func(s *Service) { s.sleep = sleep }
}

// New creates a lookup service.
func New(client Client, cfg *config.Config, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		client: client,
		policy: &cfg.Retry,
		log:    log,
		sleep:  crawler.Sleep,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) retrier() *crawler.Retrier {
	return crawler.NewRetrier(s.policy, crawler.NewLedger(), s.log).WithSleep(s.sleep)
}

// ParseIdentifier tells numeric ids from usernames. A leading "@" is
// stripped from usernames.
func ParseIdentifier(input string) (id int64, username string, numeric bool) {
	input = strings.TrimSpace(input)

	if input != "" && strings.Trim(input, "0123456789") == "" {
		if v, err := strconv.ParseInt(input, 10, 64); err == nil {
			return v, "", true
		}
	}

	return 0, strings.TrimPrefix(input, "@"), false
}

// Users looks up each identifier in order. Cancellation is checked before
// every identifier; users found so far are returned.
func (s *Service) Users(ctx context.Context, inputs []string, cancel *crawler.CancelToken) (*Result, error) {
	if len(inputs) == 0 {
		return nil, ErrNoIdentifiers
	}

	r := s.retrier()
	res := &Result{}

	var rows []models.UserRow

	for _, input := range inputs {
		if cancel.Cancelled() || ctx.Err() != nil {
			s.log.Info("Canceled by user", "processed", len(rows)+len(res.Errors))

			break
		}

		id, username, numeric := ParseIdentifier(input)

		user, err := crawler.Call(ctx, r, input, "user", func(ctx context.Context) (models.User, error) {
			if numeric {
				return s.client.UserByID(ctx, id)
			}

			return s.client.UserByUsername(ctx, username)
		})
		if err != nil {
			s.log.Warn("User lookup failed", "input", input, "error", err)
			res.Errors = append(res.Errors, models.LookupError{Input: input, Error: lookupMessage(err)})

			continue
		}

		rows = append(rows, models.UserRow{User: user})
	}

	res.Stats = r.Ledger().Stats()
	res.Tables = append(res.Tables, models.NewTable(TableUsers, models.UserColumns, rows))
	res.Tables = appendErrors(res.Tables, res.Errors)

	s.log.Info("Collected users", "count", len(rows), "errors", len(res.Errors))

	return res, nil
}

// Subscriptions lists the account's channels and groups as two tables.
func (s *Service) Subscriptions(ctx context.Context) (*Result, error) {
	r := s.retrier()

	dialogs, err := crawler.Call(ctx, r, "dialogs", "dialogs", func(ctx context.Context) ([]models.ChannelInfo, error) {
		return s.client.Dialogs(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("listing dialogs: %w", err)
	}

	var channels, groups []models.SubscriptionRow

	for _, d := range dialogs {
		if d.Broadcast {
			channels = append(channels, models.SubscriptionRow{Info: d})
		} else {
			groups = append(groups, models.SubscriptionRow{Info: d})
		}
	}

	s.log.Info("Collected subscriptions", "channels", len(channels), "groups", len(groups))

	return &Result{
		Tables: []models.Table{
			models.NewTable(TableChannels, models.SubscriptionColumns, channels),
			models.NewTable(TableGroups, models.SubscriptionColumns, groups),
		},
		Stats: r.Ledger().Stats(),
	}, nil
}

// Channels describes each named channel. Unknown names become error rows.
func (s *Service) Channels(ctx context.Context, names []string, cancel *crawler.CancelToken) (*Result, error) {
	if len(names) == 0 {
		return nil, ErrNoIdentifiers
	}

	r := s.retrier()
	res := &Result{}

	var rows []models.ChannelInfoRow

	for _, name := range names {
		if cancel.Cancelled() || ctx.Err() != nil {
			s.log.Info("Canceled by user", "processed", len(rows)+len(res.Errors))

			break
		}

		info, err := s.describe(ctx, r, name)
		if err != nil {
			s.log.Warn("Channel lookup failed", "input", name, "error", err)
			res.Errors = append(res.Errors, models.LookupError{Input: name, Error: lookupMessage(err)})

			continue
		}

		rows = append(rows, models.ChannelInfoRow{Input: name, Info: info})
	}

	res.Stats = r.Ledger().Stats()
	res.Tables = append(res.Tables, models.NewTable(TableChannelInfo, models.ChannelInfoColumns, rows))
	res.Tables = appendErrors(res.Tables, res.Errors)

	return res, nil
}

func (s *Service) describe(ctx context.Context, r *crawler.Retrier, name string) (models.ChannelInfo, error) {
	src, err := crawler.Call(ctx, r, name, "resolve", func(ctx context.Context) (models.Source, error) {
		return s.client.Resolve(ctx, name)
	})
	if err != nil {
		return models.ChannelInfo{}, err
	}

	return crawler.Call(ctx, r, name, "describe", func(ctx context.Context) (models.ChannelInfo, error) {
		return s.client.Describe(ctx, src)
	})
}

func appendErrors(tables []models.Table, errs []models.LookupError) []models.Table {
	if len(errs) == 0 {
		return tables
	}

	return append(tables, models.NewTable(TableErrors, models.LookupErrorColumns, errs))
}

func lookupMessage(err error) string {
	switch crawler.Reason(err) {
	case "not_found":
		return "Not found"
	case "rate_limited":
		return "Rate limited: " + err.Error()
	default:
		return err.Error()
	}
}
