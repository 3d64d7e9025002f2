// Package normalizer maps raw platform items into flat, fixed-schema rows.
package normalizer

import (
	"fmt"

	"tgforge/internal/models"
)

// SourceMeta is the static per-source data folded into every row.
type SourceMeta struct {
	Subscribers *int
	Source      models.Source
}

// Processor validates raw items and turns them into rows. It performs no I/O.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Transformer exposes the text helpers used for aggregate tables.
func (p *Processor) Transformer() *Transformer {
	return p.transformer
}

// Message normalizes one top level item.
func (p *Processor) Message(item models.RawItem, meta SourceMeta) (models.MessageRow, error) {
	if err := p.validator.Validate(item, meta.Source); err != nil {
		return models.MessageRow{}, fmt.Errorf("validation failed: %w", err)
	}

	t := p.transformer
	src := meta.Source

	senderID, senderName := src.ID, src.Username
	if item.Sender != nil {
		senderID, senderName = item.Sender.ID, item.Sender.Username
	}

	return models.MessageRow{
		Timestamp:       item.Date.UTC(),
		Subscribers:     meta.Subscribers,
		Reactions:       item.Reactions,
		Views:           item.Views,
		Forwards:        item.Forwards,
		Replies:         item.Replies,
		GroupedID:       item.GroupID,
		Channel:         src.DisplayName(),
		SourceKey:       src.Key,
		SenderUsername:  senderName,
		Text:            item.Text,
		MessageType:     t.MessageType(item),
		OriginUsername:  t.OriginUsername(item.Forward),
		Geo:             t.Geo(item.Geo),
		URL:             t.Permalink(src.Username, item.ID),
		Hashtags:        t.Hashtags(item.Text),
		URLs:            t.URLs(item.Text),
		SenderID:        senderID,
		MessageID:       item.ID,
		TotalEngagement: t.Engagement(item),
		IsForward:       item.Forward != nil,
	}, nil
}

// Reply normalizes a comment on parent, adding the parent snippet and sender.
func (p *Processor) Reply(item models.RawItem, parent models.RawItem, meta SourceMeta) (models.MessageRow, error) {
	if parent.ID <= 0 {
		return models.MessageRow{}, ErrInvalidParentID
	}

	row, err := p.Message(item, meta)
	if err != nil {
		return models.MessageRow{}, err
	}

	parentID := parent.ID
	snippet := p.transformer.Snippet(parent.Text)

	sender := models.NotAvailable
	if parent.Sender != nil && parent.Sender.Username != "" {
		sender = parent.Sender.Username
	}

	row.ParentID = &parentID
	row.ReplySnippet = &snippet
	row.ReplySender = &sender

	return row, nil
}

// Forward normalizes a forwarded item.
func (p *Processor) Forward(item models.RawItem, meta SourceMeta) (models.ForwardRow, error) {
	if err := p.validator.Validate(item, meta.Source); err != nil {
		return models.ForwardRow{}, fmt.Errorf("validation failed: %w", err)
	}

	fwd := item.Forward
	if fwd == nil {
		return models.ForwardRow{}, ErrNotForwarded
	}

	t := p.transformer
	src := meta.Source

	username, chatName, originURL := models.Unknown, models.Unknown, models.NoURL

	var chatID *int64

	if fwd.HasChat {
		if fwd.ChatTitle != "" {
			chatName = fwd.ChatTitle
		}

		if fwd.ChatUsername != "" {
			username = fwd.ChatUsername
			if fwd.ChannelPost > 0 {
				originURL = t.Permalink(username, fwd.ChannelPost)
			}
		}
	}

	if fwd.ChatID != 0 {
		id := fwd.ChatID
		chatID = &id
	}

	return models.ForwardRow{
		OriginDate:      fwd.Date.UTC(),
		PostedAt:        item.Date.UTC(),
		ForwardedChatID: chatID,
		Replies:         item.Replies,
		Views:           item.Views,
		Forwards:        item.Forwards,
		GroupedID:       item.GroupID,
		Channel:         src.DisplayName(),
		SourceKey:       src.Key,
		OriginUsername:  username,
		OriginChatName:  chatName,
		Text:            item.Text,
		MessageType:     t.MessageType(item),
		ForwardedURL:    t.Permalink(src.Username, item.ID),
		OriginURL:       originURL,
		ReplyTo:         item.ReplyToID,
	}, nil
}
