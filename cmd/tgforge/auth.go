package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tgforge/internal/config"
	"tgforge/internal/telegram"
)

// ErrInvalidPhone is returned for a phone number not in +<digits> form.
var ErrInvalidPhone = errors.New("phone must be in international format, e.g. +4915112345678")

func newLoginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a login code and store the session file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !config.ValidPhone(a.cfg.Telegram.Phone) {
				return ErrInvalidPhone
			}

			client, err := telegram.New(a.cfg, a.log)
			if err != nil {
				return err
			}

			prompt := &terminalPrompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr()}
			if err := client.Login(cmd.Context(), prompt); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "🔐 Session saved to %s\n", a.cfg.Telegram.SessionFile)

			return nil
		},
	}

	cmd.Flags().String("phone", "", "phone number in international format")
	_ = a.v.BindPFlag("telegram.phone", cmd.Flags().Lookup("phone"))

	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored session file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := telegram.Logout(a.cfg.Telegram.SessionFile); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "👋 Removed %s\n", a.cfg.Telegram.SessionFile)

			return nil
		},
	}
}

// terminalPrompter asks for the login code and the two-step password on
// the terminal.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *terminalPrompter) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(p.out, question)

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

func (p *terminalPrompter) Code(ctx context.Context) (string, error) {
	return p.ask(ctx, "Enter the code you received: ")
}

func (p *terminalPrompter) Password(ctx context.Context) (string, error) {
	return p.ask(ctx, "Enter your two-step verification password: ")
}

var _ telegram.Prompter = (*terminalPrompter)(nil)
