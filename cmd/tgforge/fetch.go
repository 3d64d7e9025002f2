package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tgforge/internal/export"
	"tgforge/internal/pipeline"
	"tgforge/internal/telegram"
	"tgforge/internal/validator"
)

// ErrRunFailed is returned when every source of a run failed.
var ErrRunFailed = errors.New("every source failed")

var fetchShort = map[pipeline.Kind]string{
	pipeline.KindMessages:     "Fetch messages and comments of channels within a date range",
	pipeline.KindForwards:     "Fetch forwarded messages and pivot them by origin",
	pipeline.KindParticipants: "Collect group members or active senders",
}

type fetchFlags struct {
	since    string
	until    string
	method   string
	sources  []string
	preview  int
	comments bool
	noExport bool
}

func newFetchCmd(a *app, kind pipeline.Kind) *cobra.Command {
	f := &fetchFlags{}

	cmd := &cobra.Command{
		Use:   string(kind) + " [source...]",
		Short: fetchShort[kind],
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd, kind, args)
			if err != nil {
				return err
			}

			return a.fetch(cmd.Context(), req, f)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVarP(&f.sources, "sources", "s", nil, "usernames or t.me links, comma separated")
	fl.StringVar(&f.since, "since", "", "start date (YYYY-MM-DD), inclusive")
	fl.StringVar(&f.until, "until", "", "end date (YYYY-MM-DD), inclusive")
	fl.IntVar(&f.preview, "preview", 10, "rows of the main table to print")
	fl.BoolVar(&f.noExport, "no-export", false, "do not write export files")

	switch kind {
	case pipeline.KindMessages:
		fl.BoolVar(&f.comments, "comments", false, "fetch comment threads (overrides fetch.include_comments)")
	case pipeline.KindParticipants:
		fl.StringVar(&f.method, "method", "", "participant method: default (member list) or messages (active senders)")
	}

	return cmd
}

// request validates flags and arguments into a pipeline request.
func (f *fetchFlags) request(cmd *cobra.Command, kind pipeline.Kind, args []string) (pipeline.Request, error) {
	sources, err := validator.Sources(append(args, f.sources...)...)
	if err != nil {
		return pipeline.Request{}, err
	}

	since, until, err := validator.DateRange(f.since, f.until)
	if err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{
		Kind:              kind,
		Sources:           sources,
		Since:             since,
		Until:             until,
		ParticipantMethod: f.method,
	}

	if cmd.Flags().Changed("comments") {
		comments := f.comments
		req.IncludeComments = &comments
	}

	return req, nil
}

func (a *app) fetch(ctx context.Context, req pipeline.Request, f *fetchFlags) error {
	client, err := telegram.New(a.cfg, a.log)
	if err != nil {
		return err
	}

	p := pipeline.New(client, a.cfg, a.log)
	if _, err := p.Validate(req); err != nil {
		return err
	}

	runCtx, cancel, stop := interruptible(ctx, a.log)
	defer stop()

	var res *pipeline.Result

	err = client.Run(runCtx, func(ctx context.Context) error {
		var runErr error
		res, runErr = p.Run(ctx, req, cancel)

		return runErr
	})
	if res == nil {
		return err
	}

	if err != nil {
		a.log.Warn("Connection closed with error", "error", err)
	}

	out := printer{w: a.out}
	out.reports(res)

	if len(res.Tables) > 0 {
		out.preview(res.Tables[0], f.preview)
	}

	if !f.noExport && res.RowCount() > 0 {
		paths, err := export.New(a.cfg.Output, a.log).Export(ctx, export.FromResult(res))
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		out.files(paths)
	}

	if res.Outcome() == pipeline.OutcomeFailed {
		return ErrRunFailed
	}

	return nil
}
