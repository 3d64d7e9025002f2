package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tgforge/internal/crawler"
	"tgforge/internal/export"
	"tgforge/internal/lookup"
	"tgforge/internal/telegram"
	"tgforge/internal/validator"
)

type lookupFunc func(ctx context.Context, svc *lookup.Service, cancel *crawler.CancelToken) (*lookup.Result, error)

type lookupFlags struct {
	inputs   []string
	preview  int
	noExport bool
}

func (f *lookupFlags) register(cmd *cobra.Command, inputs bool) {
	fl := cmd.Flags()
	if inputs {
		fl.StringSliceVarP(&f.inputs, "input", "i", nil, "identifiers, comma separated")
	}

	fl.IntVar(&f.preview, "preview", 20, "rows of each table to print")
	fl.BoolVar(&f.noExport, "no-export", false, "do not write export files")
}

func newUsersCmd(a *app) *cobra.Command {
	f := &lookupFlags{}

	cmd := &cobra.Command{
		Use:   "users [id|@username...]",
		Short: "Look up user profiles by numeric id or username",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := validator.Identifiers(append(args, f.inputs...)...)
			if err != nil {
				return err
			}

			return a.lookup(cmd.Context(), "users", f, func(ctx context.Context, svc *lookup.Service, cancel *crawler.CancelToken) (*lookup.Result, error) {
				return svc.Users(ctx, ids, cancel)
			})
		},
	}
	f.register(cmd, true)

	return cmd
}

func newSubscriptionsCmd(a *app) *cobra.Command {
	f := &lookupFlags{}

	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List the channels and groups of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.lookup(cmd.Context(), "subscriptions", f, func(ctx context.Context, svc *lookup.Service, _ *crawler.CancelToken) (*lookup.Result, error) {
				return svc.Subscriptions(ctx)
			})
		},
	}
	f.register(cmd, false)

	return cmd
}

func newChannelsCmd(a *app) *cobra.Command {
	f := &lookupFlags{}

	cmd := &cobra.Command{
		Use:   "channels [name...]",
		Short: "Show title, type, size and creation date of channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := validator.Sources(append(args, f.inputs...)...)
			if err != nil {
				return err
			}

			return a.lookup(cmd.Context(), "channels", f, func(ctx context.Context, svc *lookup.Service, cancel *crawler.CancelToken) (*lookup.Result, error) {
				return svc.Channels(ctx, names, cancel)
			})
		},
	}
	f.register(cmd, true)

	return cmd
}

func (a *app) lookup(ctx context.Context, name string, f *lookupFlags, fn lookupFunc) error {
	client, err := telegram.New(a.cfg, a.log)
	if err != nil {
		return err
	}

	runCtx, cancel, stop := interruptible(ctx, a.log)
	defer stop()

	svc := lookup.New(client, a.cfg, a.log)

	var res *lookup.Result

	err = client.Run(runCtx, func(ctx context.Context) error {
		var lookupErr error
		res, lookupErr = fn(ctx, svc, cancel)

		return lookupErr
	})
	if err != nil {
		return err
	}

	out := printer{w: a.out}
	out.lookup(res, f.preview)

	if f.noExport {
		return nil
	}

	paths, err := export.New(a.cfg.Output, a.log).Export(ctx, export.Bundle{
		Document: res,
		Name:     export.BundleName(name, time.Now()),
		Kind:     name,
		Tables:   res.Tables,
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	out.files(paths)

	return nil
}
