package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/tgerr"

	"tgforge/internal/crawler"
)

// notFoundErrors are RPC error types meaning the peer does not exist or is
// not visible to this account.
var notFoundErrors = []string{
	"USERNAME_NOT_OCCUPIED",
	"USERNAME_INVALID",
	"CHANNEL_INVALID",
	"CHANNEL_PRIVATE",
	"PEER_ID_INVALID",
	"USER_ID_INVALID",
	"CHAT_ID_INVALID",
}

// mapError translates library errors into the crawler taxonomy.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if d, ok := tgerr.AsFloodWait(err); ok {
		return &crawler.RateLimitError{Wait: d}
	}

	if tgerr.Is(err, notFoundErrors...) {
		return fmt.Errorf("%w: %w", crawler.ErrSourceNotFound, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &crawler.TransportError{Op: op, Err: err}
}
