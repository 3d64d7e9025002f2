// Package models defines data structures shared by the fetch pipeline, the
// normalizer, and the exporters.
package models

import "time"

// SourceKind identifies the type of peer a Source resolves to.
type SourceKind string

// Source kinds.
const (
	SourceChannel SourceKind = "channel"
	SourceChat    SourceKind = "chat"
	SourceUser    SourceKind = "user"
)

// Source is one named feed being fetched. It is immutable for the duration of a run.
type Source struct {
	Key        string     `json:"key"`
	Kind       SourceKind `json:"kind"`
	Title      string     `json:"title"`
	Username   string     `json:"username,omitempty"`
	ID         int64      `json:"id"`
	AccessHash int64      `json:"-"`
}

// DisplayName returns the source title, falling back to the key it was resolved from.
func (s Source) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}

	return s.Key
}

// HasPublicHandle reports whether permalinks can be built for this source.
func (s Source) HasPublicHandle() bool {
	return s.Username != ""
}

// User holds the profile fields of a platform user.
type User struct {
	PhotoID       *int64   `json:"photoId,omitempty"`
	PhotoDC       *int     `json:"photoDc,omitempty"`
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Username      string   `json:"username"`
	Phone         string   `json:"phone"`
	Status        string   `json:"status"`
	LangCode      string   `json:"langCode"`
	Usernames     []string `json:"usernames,omitempty"`
	ID            int64    `json:"id"`
	AccessHash    int64    `json:"accessHash"`
	Bot           bool     `json:"bot"`
	Verified      bool     `json:"verified"`
	Premium       bool     `json:"premium"`
	Scam          bool     `json:"scam"`
	Fake          bool     `json:"fake"`
	Restricted    bool     `json:"restricted"`
	Deleted       bool     `json:"deleted"`
	Support       bool     `json:"support"`
	Contact       bool     `json:"contact"`
	MutualContact bool     `json:"mutualContact"`
	CloseFriend   bool     `json:"closeFriend"`
	StoriesHidden bool     `json:"storiesHidden"`
}

// User status labels.
const (
	StatusOnline    = "Online"
	StatusOffline   = "Offline"
	StatusRecently  = "Recently"
	StatusLastWeek  = "Last Week"
	StatusLastMonth = "Last Month"
	StatusUnknown   = "Unknown"
)

// ChannelInfo describes a channel or group as reported by the platform.
type ChannelInfo struct {
	Created           time.Time `json:"created"`
	ParticipantsCount *int      `json:"participantsCount,omitempty"`
	Title             string    `json:"title"`
	Username          string    `json:"username"`
	About             string    `json:"about"`
	ID                int64     `json:"id"`
	AccessHash        int64     `json:"accessHash"`
	Broadcast         bool      `json:"broadcast"`
	Megagroup         bool      `json:"megagroup"`
	Verified          bool      `json:"verified"`
	Scam              bool      `json:"scam"`
	Restricted        bool      `json:"restricted"`
}
