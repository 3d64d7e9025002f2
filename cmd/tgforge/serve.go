package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tgforge/internal/export"
	"tgforge/internal/lookup"
	"tgforge/internal/pipeline"
	"tgforge/internal/server"
	"tgforge/internal/store"
	"tgforge/internal/telegram"
)

func newServeCmd(a *app) *cobra.Command {
	var noExport bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for starting, polling and cancelling runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := telegram.New(a.cfg, a.log)
			if err != nil {
				return err
			}

			st, err := store.Open(ctx, a.cfg.Server)
			if err != nil {
				return err
			}
			defer st.Close()

			var opts []server.Option
			if !noExport {
				opts = append(opts, server.WithExporter(export.New(a.cfg.Output, a.log)))
			}

			srv := server.New(a.cfg,
				pipeline.New(client, a.cfg, a.log),
				lookup.New(client, a.cfg, a.log),
				st, a.log, opts...)

			return client.Run(ctx, func(ctx context.Context) error {
				return srv.Start(ctx)
			})
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("store", "", "run store: memory or redis")
	cmd.Flags().String("redis-url", "", "redis URL for the redis store")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "do not write finished runs to the output directory")

	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.store", cmd.Flags().Lookup("store"))
	_ = a.v.BindPFlag("server.redis_url", cmd.Flags().Lookup("redis-url"))

	return cmd
}
