// Package telegram implements the page, member, info and lookup sources on
// top of the MTProto client.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"

	gotd "github.com/gotd/td/telegram"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"tgforge/internal/config"
	"tgforge/internal/crawler"
	"tgforge/internal/logger"
	"tgforge/internal/lookup"
)

// ErrNotAuthorized is returned when the session is missing or expired.
var ErrNotAuthorized = errors.New("not logged in, run 'tgforge login' first")

var (
	_ crawler.Client = (*Client)(nil)
	_ lookup.Client  = (*Client)(nil)
)

// Client is an authorized Telegram session.
type Client struct {
	raw *gotd.Client
	api *tg.Client
	cfg config.TelegramConfig
	log *logger.Logger
}

// New creates a client from validated credentials. Nothing connects until
// Run or Login.
func New(cfg *config.Config, log *logger.Logger) (*Client, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}

	raw := gotd.NewClient(cfg.Telegram.APIID, cfg.Telegram.APIHash, gotd.Options{
		SessionStorage: &session.FileStorage{Path: cfg.Telegram.SessionFile},
	})

	return &Client{
		raw: raw,
		api: raw.API(),
		cfg: cfg.Telegram,
		log: log,
	}, nil
}

// Run connects, checks the session and calls fn while the connection is up.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.raw.Run(ctx, func(ctx context.Context) error {
		status, err := c.raw.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("checking authorization: %w", err)
		}

		if !status.Authorized {
			return ErrNotAuthorized
		}

		c.log.Debug("Connected", "session", c.cfg.SessionFile)

		return fn(ctx)
	})
}

// Prompter supplies the interactive parts of the login flow.
type Prompter interface {
	Code(ctx context.Context) (string, error)
	Password(ctx context.Context) (string, error)
}

type promptAuth struct {
	auth.UserAuthenticator
	prompt Prompter
}

func (a promptAuth) Password(ctx context.Context) (string, error) {
	return a.prompt.Password(ctx)
}

// Login sends a code to the configured phone and signs in, asking for the
// two-step password when the account has one. The session file is written
// on success.
func (c *Client) Login(ctx context.Context, prompt Prompter) error {
	code := auth.CodeAuthenticatorFunc(func(ctx context.Context, _ *tg.AuthSentCode) (string, error) {
		return prompt.Code(ctx)
	})

	flow := auth.NewFlow(
		promptAuth{UserAuthenticator: auth.Constant(c.cfg.Phone, "", code), prompt: prompt},
		auth.SendCodeOptions{},
	)

	return c.raw.Run(ctx, func(ctx context.Context) error {
		if err := c.raw.Auth().IfNecessary(ctx, flow); err != nil {
			return fmt.Errorf("login: %w", err)
		}

		self, err := c.raw.Self(ctx)
		if err != nil {
			return fmt.Errorf("fetching account: %w", err)
		}

		c.log.Info("✅ Logged in", "user_id", self.ID, "username", self.Username)

		return nil
	})
}

// Logout removes the session file. A missing file is not an error.
func Logout(sessionFile string) error {
	if err := os.Remove(sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}

	return nil
}

// call applies the request timeout and maps library errors.
func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	reqCtx := ctx

	if d := c.cfg.RequestTimeout(); d > 0 {
		var cancel context.CancelFunc

		reqCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	v, err := fn(reqCtx)
	if err != nil {
		var zero T

		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return zero, &crawler.TransportError{Op: op, Err: err}
		}

		return zero, mapError(op, err)
	}

	return v, nil
}
