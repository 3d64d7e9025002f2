package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tgforge/internal/crawler"
	"tgforge/internal/logger"
)

// interruptible wires Ctrl+C to a run. The first interrupt sets the token so
// the run stops after its current page and keeps what it collected; the
// second cancels the context.
func interruptible(parent context.Context, log *logger.Logger) (context.Context, *crawler.CancelToken, func()) {
	ctx, cancel := context.WithCancel(parent)
	token := crawler.NewCancelToken()

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigs:
		case <-ctx.Done():
			return
		}

		log.Warn("⏸️  Interrupt received, stopping after the current page. Press Ctrl+C again to abort.")
		token.Cancel()

		select {
		case <-sigs:
			log.Warn("Aborting")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, token, func() {
		signal.Stop(sigs)
		cancel()
	}
}
