package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"tgforge/internal/models"
)

// entities indexes the users and chats returned next to a message page.
type entities struct {
	users map[int64]*tg.User
	chats map[int64]models.ChannelInfo
}

func newEntities(users []tg.UserClass, chats []tg.ChatClass) entities {
	e := entities{
		users: make(map[int64]*tg.User, len(users)),
		chats: make(map[int64]models.ChannelInfo, len(chats)),
	}

	for _, u := range users {
		if user, ok := u.(*tg.User); ok {
			e.users[user.ID] = user
		}
	}

	for _, c := range chats {
		if info, ok := chatInfo(c); ok {
			e.chats[info.ID] = info
		}
	}

	return e
}

// convertMessages maps a history page, keeping the server order.
func convertMessages(msgs []tg.MessageClass, e entities) []models.RawItem {
	items := make([]models.RawItem, 0, len(msgs))

	for _, m := range msgs {
		switch msg := m.(type) {
		case *tg.Message:
			items = append(items, convertMessage(msg, e))
		case *tg.MessageService:
			items = append(items, models.RawItem{ID: msg.ID, Date: unix(msg.Date)})
		}
	}

	return items
}

func convertMessage(m *tg.Message, e entities) models.RawItem {
	item := models.RawItem{
		ID:   m.ID,
		Date: unix(m.Date),
		Text: m.Message,
	}

	if from, ok := m.GetFromID(); ok {
		if pu, ok := from.(*tg.PeerUser); ok {
			if u, ok := e.users[pu.UserID]; ok {
				user := convertUser(u)
				item.Sender = &user
			} else {
				item.Sender = &models.User{ID: pu.UserID, Status: models.StatusUnknown}
			}
		}
	}

	if v, ok := m.GetViews(); ok {
		item.Views = &v
	}

	if v, ok := m.GetForwards(); ok {
		item.Forwards = &v
	}

	if r, ok := m.GetReplies(); ok {
		n := r.Replies
		item.Replies = &n
	}

	if r, ok := m.GetReactions(); ok {
		n := sumReactions(r)
		item.Reactions = &n
	}

	if g, ok := m.GetGroupedID(); ok {
		item.GroupID = &g
	}

	if h, ok := m.GetReplyTo(); ok {
		if rh, ok := h.(*tg.MessageReplyHeader); ok {
			item.ReplyToID = rh.ReplyToMsgID
		}
	}

	if media, ok := m.GetMedia(); ok {
		item.MediaKind = mediaKind(media)
		item.Geo = geoPoint(media)
	}

	if fwd, ok := m.GetFwdFrom(); ok {
		item.Forward = forwardHeader(fwd, e)
	}

	return item
}

// sumReactions adds up the counts of every reaction kind.
func sumReactions(r tg.MessageReactions) int {
	total := 0
	for _, rc := range r.Results {
		total += rc.Count
	}

	return total
}

// mediaKind names the media class, e.g. "MessageMediaPhoto".
func mediaKind(media tg.MessageMediaClass) string {
	if media == nil {
		return ""
	}

	if _, ok := media.(*tg.MessageMediaEmpty); ok {
		return ""
	}

	return strings.TrimPrefix(fmt.Sprintf("%T", media), "*tg.")
}

func geoPoint(media tg.MessageMediaClass) *models.GeoPoint {
	var geo tg.GeoPointClass

	switch m := media.(type) {
	case *tg.MessageMediaGeo:
		geo = m.Geo
	case *tg.MessageMediaGeoLive:
		geo = m.Geo
	case *tg.MessageMediaVenue:
		geo = m.Geo
	default:
		return nil
	}

	if p, ok := geo.(*tg.GeoPoint); ok {
		return &models.GeoPoint{Lat: p.Lat, Long: p.Long}
	}

	return nil
}

func forwardHeader(h tg.MessageFwdHeader, e entities) *models.ForwardHeader {
	fwd := &models.ForwardHeader{Date: unix(h.Date)}

	if post, ok := h.GetChannelPost(); ok {
		fwd.ChannelPost = post
	}

	from, ok := h.GetFromID()
	if !ok {
		return fwd
	}

	var chatID int64

	switch p := from.(type) {
	case *tg.PeerChannel:
		chatID = p.ChannelID
	case *tg.PeerChat:
		chatID = p.ChatID
	case *tg.PeerUser:
		fwd.ChatID = p.UserID

		return fwd
	}

	fwd.ChatID = chatID

	if info, ok := e.chats[chatID]; ok {
		fwd.HasChat = true
		fwd.ChatTitle = info.Title
		fwd.ChatUsername = info.Username
	}

	return fwd
}

// chatInfo converts channels and basic groups. Forbidden and empty chats
// are skipped.
func chatInfo(c tg.ChatClass) (models.ChannelInfo, bool) {
	switch ch := c.(type) {
	case *tg.Channel:
		info := models.ChannelInfo{
			Created:    unix(ch.Date),
			Title:      ch.Title,
			Username:   ch.Username,
			ID:         ch.ID,
			AccessHash: ch.AccessHash,
			Broadcast:  ch.Broadcast,
			Megagroup:  ch.Megagroup,
			Verified:   ch.Verified,
			Scam:       ch.Scam,
			Restricted: ch.Restricted,
		}

		if n, ok := ch.GetParticipantsCount(); ok {
			info.ParticipantsCount = &n
		}

		return info, true
	case *tg.Chat:
		n := ch.ParticipantsCount

		return models.ChannelInfo{
			Created:           unix(ch.Date),
			Title:             ch.Title,
			ID:                ch.ID,
			ParticipantsCount: &n,
		}, true
	default:
		return models.ChannelInfo{}, false
	}
}

func convertUser(u *tg.User) models.User {
	user := models.User{
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Username:      u.Username,
		Phone:         u.Phone,
		Status:        userStatus(u.Status),
		LangCode:      u.LangCode,
		ID:            u.ID,
		AccessHash:    u.AccessHash,
		Bot:           u.Bot,
		Verified:      u.Verified,
		Premium:       u.Premium,
		Scam:          u.Scam,
		Fake:          u.Fake,
		Restricted:    u.Restricted,
		Deleted:       u.Deleted,
		Support:       u.Support,
		Contact:       u.Contact,
		MutualContact: u.MutualContact,
		CloseFriend:   u.CloseFriend,
		StoriesHidden: u.StoriesHidden,
	}

	for _, un := range u.Usernames {
		user.Usernames = append(user.Usernames, un.Username)
	}

	if p, ok := u.Photo.(*tg.UserProfilePhoto); ok {
		id, dc := p.PhotoID, p.DCID
		user.PhotoID, user.PhotoDC = &id, &dc
	}

	return user
}

// userStatus reduces a presence to its display label.
func userStatus(s tg.UserStatusClass) string {
	switch s.(type) {
	case *tg.UserStatusOnline:
		return models.StatusOnline
	case *tg.UserStatusOffline:
		return models.StatusOffline
	case *tg.UserStatusRecently:
		return models.StatusRecently
	case *tg.UserStatusLastWeek:
		return models.StatusLastWeek
	case *tg.UserStatusLastMonth:
		return models.StatusLastMonth
	default:
		return models.StatusUnknown
	}
}

func sourceFromChat(key string, c tg.ChatClass) (models.Source, bool) {
	switch ch := c.(type) {
	case *tg.Channel:
		return models.Source{
			Key: key, Kind: models.SourceChannel, Title: ch.Title, Username: ch.Username,
			ID: ch.ID, AccessHash: ch.AccessHash,
		}, true
	case *tg.Chat:
		return models.Source{Key: key, Kind: models.SourceChat, Title: ch.Title, ID: ch.ID}, true
	default:
		return models.Source{}, false
	}
}

func unix(sec int) time.Time {
	if sec == 0 {
		return time.Time{}
	}

	return time.Unix(int64(sec), 0).UTC()
}
