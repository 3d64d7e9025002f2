package crawler

import (
	"context"

	"tgforge/internal/models"
)

// Resolver turns a user supplied name into a Source. Unknown names yield an
// error wrapping ErrSourceNotFound.
type Resolver interface {
	Resolve(ctx context.Context, name string) (models.Source, error)
}

// PageSource returns history newest first. A cursor of 0 asks for the most
// recent items; otherwise only items with an id below cursor are returned.
type PageSource interface {
	Resolver
	History(ctx context.Context, src models.Source, cursor, limit int) ([]models.RawItem, error)
}

// ReplySource returns the comment thread of one item.
type ReplySource interface {
	Replies(ctx context.Context, src models.Source, parentID, limit int) ([]models.RawItem, error)
}

// MemberSource enumerates the members of a group by offset.
type MemberSource interface {
	Members(ctx context.Context, src models.Source, offset, limit int) ([]models.User, error)
}

// InfoSource describes a resolved channel.
type InfoSource interface {
	Describe(ctx context.Context, src models.Source) (models.ChannelInfo, error)
}

// Client is everything the fetch pipelines need from the platform.
type Client interface {
	PageSource
	ReplySource
	MemberSource
	InfoSource
}
