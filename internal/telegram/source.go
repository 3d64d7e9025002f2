package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/tg"

	"tgforge/internal/crawler"
	"tgforge/internal/models"
)

// ErrNotAChat is returned when a name resolves to a user where a channel or
// group is needed.
var ErrNotAChat = errors.New("peer is not a channel or group")

// Username normalizes a source name: "@name", "t.me/name" and full links
// all yield "name".
func Username(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"https://", "http://"} {
		name = strings.TrimPrefix(name, prefix)
	}

	name = strings.TrimPrefix(name, "t.me/")
	name = strings.TrimPrefix(name, "telegram.me/")
	name = strings.TrimPrefix(name, "@")

	if i := strings.IndexAny(name, "/?"); i >= 0 {
		name = name[:i]
	}

	return name
}

// Resolve looks a public name up.
func (c *Client) Resolve(ctx context.Context, name string) (models.Source, error) {
	username := Username(name)
	if username == "" {
		return models.Source{}, fmt.Errorf("%w: empty name", crawler.ErrSourceNotFound)
	}

	res, err := call(ctx, c, "resolve", func(ctx context.Context) (*tg.ContactsResolvedPeer, error) {
		return c.api.ContactsResolveUsername(ctx, username)
	})
	if err != nil {
		return models.Source{}, err
	}

	switch p := res.Peer.(type) {
	case *tg.PeerChannel:
		for _, chat := range res.Chats {
			if chat.GetID() == p.ChannelID {
				if src, ok := sourceFromChat(name, chat); ok {
					return src, nil
				}
			}
		}
	case *tg.PeerUser:
		for _, u := range res.Users {
			if user, ok := u.(*tg.User); ok && user.ID == p.UserID {
				return models.Source{
					Key: name, Kind: models.SourceUser, Title: strings.TrimSpace(user.FirstName + " " + user.LastName),
					Username: user.Username, ID: user.ID, AccessHash: user.AccessHash,
				}, nil
			}
		}
	}

	return models.Source{}, fmt.Errorf("%w: %s", crawler.ErrSourceNotFound, name)
}

func inputPeer(src models.Source) tg.InputPeerClass {
	switch src.Kind {
	case models.SourceChat:
		return &tg.InputPeerChat{ChatID: src.ID}
	case models.SourceUser:
		return &tg.InputPeerUser{UserID: src.ID, AccessHash: src.AccessHash}
	default:
		return &tg.InputPeerChannel{ChannelID: src.ID, AccessHash: src.AccessHash}
	}
}

func inputChannel(src models.Source) *tg.InputChannel {
	return &tg.InputChannel{ChannelID: src.ID, AccessHash: src.AccessHash}
}

// unpack flattens the message list variants.
func unpack(res tg.MessagesMessagesClass) ([]models.RawItem, error) {
	switch r := res.(type) {
	case *tg.MessagesMessages:
		return convertMessages(r.Messages, newEntities(r.Users, r.Chats)), nil
	case *tg.MessagesMessagesSlice:
		return convertMessages(r.Messages, newEntities(r.Users, r.Chats)), nil
	case *tg.MessagesChannelMessages:
		return convertMessages(r.Messages, newEntities(r.Users, r.Chats)), nil
	case *tg.MessagesMessagesNotModified:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected history response %T", res)
	}
}

// History returns up to limit items older than cursor, newest first.
func (c *Client) History(ctx context.Context, src models.Source, cursor, limit int) ([]models.RawItem, error) {
	res, err := call(ctx, c, "history", func(ctx context.Context) (tg.MessagesMessagesClass, error) {
		return c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     inputPeer(src),
			OffsetID: cursor,
			Limit:    limit,
		})
	})
	if err != nil {
		return nil, err
	}

	return unpack(res)
}

// Replies returns up to limit comments on parentID.
func (c *Client) Replies(ctx context.Context, src models.Source, parentID, limit int) ([]models.RawItem, error) {
	res, err := call(ctx, c, "replies", func(ctx context.Context) (tg.MessagesMessagesClass, error) {
		return c.api.MessagesGetReplies(ctx, &tg.MessagesGetRepliesRequest{
			Peer:  inputPeer(src),
			MsgID: parentID,
			Limit: limit,
		})
	})
	if err != nil {
		return nil, err
	}

	return unpack(res)
}

// Members pages the recent participants of a channel. Basic groups return
// every member on the first page.
func (c *Client) Members(ctx context.Context, src models.Source, offset, limit int) ([]models.User, error) {
	switch src.Kind {
	case models.SourceUser:
		return nil, fmt.Errorf("%w: %s", ErrNotAChat, src.Key)
	case models.SourceChat:
		if offset > 0 {
			return nil, nil
		}

		full, err := call(ctx, c, "members", func(ctx context.Context) (*tg.MessagesChatFull, error) {
			return c.api.MessagesGetFullChat(ctx, src.ID)
		})
		if err != nil {
			return nil, err
		}

		return users(full.Users), nil
	}

	res, err := call(ctx, c, "members", func(ctx context.Context) (tg.ChannelsChannelParticipantsClass, error) {
		return c.api.ChannelsGetParticipants(ctx, &tg.ChannelsGetParticipantsRequest{
			Channel: inputChannel(src),
			Filter:  &tg.ChannelParticipantsRecent{},
			Offset:  offset,
			Limit:   limit,
		})
	})
	if err != nil {
		return nil, err
	}

	page, ok := res.(*tg.ChannelsChannelParticipants)
	if !ok {
		return nil, nil
	}

	return users(page.Users), nil
}

func users(list []tg.UserClass) []models.User {
	out := make([]models.User, 0, len(list))

	for _, u := range list {
		if user, ok := u.(*tg.User); ok {
			out = append(out, convertUser(user))
		}
	}

	return out
}

// Describe fetches the full metadata of a channel or group.
func (c *Client) Describe(ctx context.Context, src models.Source) (models.ChannelInfo, error) {
	var (
		full *tg.MessagesChatFull
		err  error
	)

	switch src.Kind {
	case models.SourceUser:
		return models.ChannelInfo{}, fmt.Errorf("%w: %s", ErrNotAChat, src.Key)
	case models.SourceChat:
		full, err = call(ctx, c, "describe", func(ctx context.Context) (*tg.MessagesChatFull, error) {
			return c.api.MessagesGetFullChat(ctx, src.ID)
		})
	default:
		full, err = call(ctx, c, "describe", func(ctx context.Context) (*tg.MessagesChatFull, error) {
			return c.api.ChannelsGetFullChannel(ctx, inputChannel(src))
		})
	}

	if err != nil {
		return models.ChannelInfo{}, err
	}

	return describeFull(src, full), nil
}

func describeFull(src models.Source, full *tg.MessagesChatFull) models.ChannelInfo {
	info := models.ChannelInfo{ID: src.ID, Title: src.Title, Username: src.Username, AccessHash: src.AccessHash}

	for _, chat := range full.Chats {
		if chat.GetID() != src.ID {
			continue
		}

		if ci, ok := chatInfo(chat); ok {
			info = ci
		}
	}

	switch f := full.FullChat.(type) {
	case *tg.ChannelFull:
		info.About = f.About
		if n, ok := f.GetParticipantsCount(); ok {
			info.ParticipantsCount = &n
		}
	case *tg.ChatFull:
		info.About = f.About
	}

	return info
}

// UserByID fetches a user the session already knows.
func (c *Client) UserByID(ctx context.Context, id int64) (models.User, error) {
	list, err := call(ctx, c, "user", func(ctx context.Context) ([]tg.UserClass, error) {
		return c.api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: id}})
	})
	if err != nil {
		return models.User{}, err
	}

	found := users(list)
	if len(found) == 0 {
		return models.User{}, fmt.Errorf("%w: user %d", crawler.ErrSourceNotFound, id)
	}

	return found[0], nil
}

// UserByUsername resolves a public username to a user.
func (c *Client) UserByUsername(ctx context.Context, username string) (models.User, error) {
	res, err := call(ctx, c, "user", func(ctx context.Context) (*tg.ContactsResolvedPeer, error) {
		return c.api.ContactsResolveUsername(ctx, Username(username))
	})
	if err != nil {
		return models.User{}, err
	}

	if p, ok := res.Peer.(*tg.PeerUser); ok {
		for _, u := range res.Users {
			if user, ok := u.(*tg.User); ok && user.ID == p.UserID {
				return convertUser(user), nil
			}
		}
	}

	return models.User{}, fmt.Errorf("%w: %s is not a user", crawler.ErrSourceNotFound, username)
}

// Dialogs lists every channel and group the account belongs to.
func (c *Client) Dialogs(ctx context.Context) ([]models.ChannelInfo, error) {
	iter := query.GetDialogs(c.api).BatchSize(100).Iter()

	var out []models.ChannelInfo

	for iter.Next(ctx) {
		elem := iter.Value()

		switch p := elem.Peer.(type) {
		case *tg.InputPeerChannel:
			if ch, ok := elem.Entities.Channel(p.ChannelID); ok {
				if info, ok := chatInfo(ch); ok {
					out = append(out, info)
				}
			}
		case *tg.InputPeerChat:
			if ch, ok := elem.Entities.Chat(p.ChatID); ok {
				if info, ok := chatInfo(ch); ok {
					out = append(out, info)
				}
			}
		}
	}

	if err := iter.Err(); err != nil {
		return out, mapError("dialogs", err)
	}

	return out, nil
}
