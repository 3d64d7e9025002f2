package models

import "time"

// RawItem is one item as returned by a page source. Optional blocks are nil
// when the platform did not send them.
type RawItem struct {
	Date      time.Time      `json:"date"`
	GroupID   *int64         `json:"groupId,omitempty"`
	Sender    *User          `json:"sender,omitempty"`
	Views     *int           `json:"views,omitempty"`
	Forwards  *int           `json:"forwards,omitempty"`
	Replies   *int           `json:"replies,omitempty"`
	Reactions *int           `json:"reactions,omitempty"`
	Forward   *ForwardHeader `json:"forward,omitempty"`
	Geo       *GeoPoint      `json:"geo,omitempty"`
	Text      string         `json:"text"`
	MediaKind string         `json:"mediaKind,omitempty"`
	ID        int            `json:"id"`
	ReplyToID int            `json:"replyToId,omitempty"`
}

// HasDate reports whether the item carries a timestamp.
func (r RawItem) HasDate() bool {
	return !r.Date.IsZero()
}

// ForwardHeader describes where a forwarded item originally came from.
type ForwardHeader struct {
	Date         time.Time `json:"date"`
	ChatTitle    string    `json:"chatTitle"`
	ChatUsername string    `json:"chatUsername"`
	ChatID       int64     `json:"chatId"`
	ChannelPost  int       `json:"channelPost"`
	HasChat      bool      `json:"hasChat"`
}

// GeoPoint is a coordinate attached to an item.
type GeoPoint struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}
