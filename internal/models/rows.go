package models

import (
	"strconv"
	"strings"
	"time"
)

// Sentinels written in place of absent values.
const (
	NotAvailable = "Not Available"
	NoURL        = "No URL available"
	NoReplies    = "No Replies"
	NoText       = "No Text"
	NoReply      = "No Reply"
	Unknown      = "Unknown"
	NoGeo        = "None"
	NoUsername   = "No Username"
	Platform     = "Telegram"
)

// DateTimeLayout is the layout used for timestamps in tabular output.
const DateTimeLayout = "2006-01-02 15:04:05"

// MessageColumns is the column contract of the messages table.
var MessageColumns = []string{
	"Channel", "Subscribers", "Message ID", "Parent Message ID", "Sender User ID",
	"Sender Username", "Message DateTime (UTC)", "Text", "Message Type", "Is Forward",
	"Origin Username", "Geo-location", "Hashtags", "URLs Shared", "Reactions",
	"Message URL", "Views", "Forwards", "Replies", "Total Engagement",
	"Reply To Message Snippet", "Reply To Message Sender", "Grouped ID", "Platform",
}

// MessageRow is the normalized form of one message or reply.
type MessageRow struct {
	Timestamp       time.Time
	Subscribers     *int
	ParentID        *int
	Reactions       *int
	Views           *int
	Forwards        *int
	Replies         *int
	ReplySnippet    *string
	ReplySender     *string
	GroupedID       *int64
	Channel         string
	SourceKey       string
	SenderUsername  string
	Text            string
	MessageType     string
	OriginUsername  string
	Geo             string
	URL             string
	Hashtags        []string
	URLs            []string
	SenderID        int64
	MessageID       int
	TotalEngagement int
	IsForward       bool
}

// GroupKey returns the grouped-post identifier, if any.
func (r MessageRow) GroupKey() (string, bool) {
	return groupKey(r.GroupedID)
}

// SourceName returns the channel the row belongs to.
func (r MessageRow) SourceName() string {
	return r.Channel
}

// SortTime returns the timestamp used for ordering and bucketing.
func (r MessageRow) SortTime() time.Time {
	return r.Timestamp
}

// Values renders the row in MessageColumns order.
func (r MessageRow) Values() []any {
	return []any{
		r.Channel,
		intOr(r.Subscribers, NotAvailable),
		r.MessageID,
		intOr(r.ParentID, ""),
		r.SenderID,
		stringOr(r.SenderUsername, NotAvailable),
		timeOr(r.Timestamp, NotAvailable),
		r.Text,
		r.MessageType,
		r.IsForward,
		r.OriginUsername,
		r.Geo,
		strings.Join(r.Hashtags, ", "),
		strings.Join(r.URLs, ", "),
		intOr(r.Reactions, NotAvailable),
		r.URL,
		intOr(r.Views, NotAvailable),
		intOr(r.Forwards, NotAvailable),
		intOr(r.Replies, NoReplies),
		r.TotalEngagement,
		strPtrOr(r.ReplySnippet, ""),
		strPtrOr(r.ReplySender, ""),
		groupOr(r.GroupedID),
		Platform,
	}
}

// ForwardColumns is the column contract of the forwards table.
var ForwardColumns = []string{
	"Channel", "Message DateTime (UTC)", "Forward Datetime (UTC)", "Origin Username",
	"Origin Chat Name", "Text", "Forwarded Chat ID", "Reply To", "Replies", "Views",
	"Forwards", "Message Type", "Forwarded URL", "Origin URL", "Grouped ID",
}

// ForwardRow is the normalized form of one forwarded message.
type ForwardRow struct {
	OriginDate      time.Time
	PostedAt        time.Time
	ForwardedChatID *int64
	Replies         *int
	Views           *int
	Forwards        *int
	GroupedID       *int64
	Channel         string
	SourceKey       string
	OriginUsername  string
	OriginChatName  string
	Text            string
	MessageType     string
	ForwardedURL    string
	OriginURL       string
	ReplyTo         int
}

// GroupKey returns the grouped-post identifier, if any.
func (r ForwardRow) GroupKey() (string, bool) {
	return groupKey(r.GroupedID)
}

// SourceName returns the channel the forward was posted in.
func (r ForwardRow) SourceName() string {
	return r.Channel
}

// SortTime orders forwards by the original post date, falling back to the
// date they were forwarded.
func (r ForwardRow) SortTime() time.Time {
	if !r.OriginDate.IsZero() {
		return r.OriginDate
	}

	return r.PostedAt
}

// Values renders the row in ForwardColumns order.
func (r ForwardRow) Values() []any {
	var chatID any = Unknown
	if r.ForwardedChatID != nil {
		chatID = *r.ForwardedChatID
	}

	var replyTo any = NoReply
	if r.ReplyTo != 0 {
		replyTo = r.ReplyTo
	}

	return []any{
		r.Channel,
		timeOr(r.OriginDate, NotAvailable),
		timeOr(r.PostedAt, NotAvailable),
		r.OriginUsername,
		r.OriginChatName,
		r.Text,
		chatID,
		replyTo,
		intOr(r.Replies, NoReplies),
		intOr(r.Views, NotAvailable),
		intOr(r.Forwards, NotAvailable),
		r.MessageType,
		r.ForwardedURL,
		r.OriginURL,
		groupOr(r.GroupedID),
	}
}

// ParticipantColumns is the column contract of the raw participants table.
var ParticipantColumns = []string{
	"Group", "User ID", "Username", "First Name", "Last Name", "Status", "Is Bot",
	"Verified", "Premium", "Scam", "Fake", "Restricted", "Deleted", "Access Hash",
	"Phone", "Language Code", "Profile Picture DC ID", "Profile Picture Photo ID",
}

// ParticipantRow records that a user was seen in a group.
type ParticipantRow struct {
	Group string
	User  User
}

// Values renders the row in ParticipantColumns order.
func (r ParticipantRow) Values() []any {
	u := r.User

	return []any{
		r.Group,
		u.ID,
		stringOr(u.Username, NoUsername),
		u.FirstName,
		u.LastName,
		u.Status,
		u.Bot,
		u.Verified,
		u.Premium,
		u.Scam,
		u.Fake,
		u.Restricted,
		u.Deleted,
		u.AccessHash,
		stringOr(u.Phone, NotAvailable),
		stringOr(u.LangCode, NotAvailable),
		intOr(u.PhotoDC, ""),
		int64Or(u.PhotoID, ""),
	}
}

// UserColumns is the column contract of the user lookup table.
var UserColumns = []string{
	"User ID", "First Name", "Last Name", "Username", "Alternate Usernames", "Phone",
	"Is Bot", "Verified", "Premium", "Scam", "Fake", "Restricted", "Deleted", "Status",
	"Access Hash", "Photo ID", "Photo DC ID", "Support", "Contact", "Mutual Contact",
	"Close Friend", "Stories Hidden", "Language Code",
}

// UserRow is the lookup view of a user.
type UserRow struct {
	User User
}

// Values renders the row in UserColumns order.
func (r UserRow) Values() []any {
	u := r.User

	username := NoUsername
	if u.Username != "" {
		username = "@" + u.Username
	}

	alternates := NoGeo
	if len(u.Usernames) > 0 {
		alternates = strings.Join(u.Usernames, ", ")
	}

	return []any{
		u.ID,
		u.FirstName,
		u.LastName,
		username,
		alternates,
		stringOr(u.Phone, NotAvailable),
		yesNo(u.Bot),
		yesNo(u.Verified),
		yesNo(u.Premium),
		yesNo(u.Scam),
		yesNo(u.Fake),
		yesNo(u.Restricted),
		yesNo(u.Deleted),
		u.Status,
		u.AccessHash,
		int64Or(u.PhotoID, ""),
		intOr(u.PhotoDC, ""),
		yesNo(u.Support),
		yesNo(u.Contact),
		yesNo(u.MutualContact),
		yesNo(u.CloseFriend),
		yesNo(u.StoriesHidden),
		stringOr(u.LangCode, NotAvailable),
	}
}

// LookupErrorColumns is the column contract for failed lookups.
var LookupErrorColumns = []string{"Input", "Error"}

// LookupError records an identifier that could not be resolved.
type LookupError struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

// Values renders the row in LookupErrorColumns order.
func (e LookupError) Values() []any {
	return []any{e.Input, e.Error}
}

// SubscriptionColumns is the column contract of the subscription tables.
var SubscriptionColumns = []string{
	"ID", "Title", "Username", "URL", "Type", "Participants", "Verified", "Scam",
	"Restricted", "Access Hash",
}

// SubscriptionRow is one channel or group the account is a member of.
type SubscriptionRow struct {
	Info ChannelInfo
}

// Values renders the row in SubscriptionColumns order.
func (r SubscriptionRow) Values() []any {
	c := r.Info

	username, url := NoUsername, "Private/No URL"
	if c.Username != "" {
		username = "@" + c.Username
		url = "https://t.me/" + c.Username
	}

	return []any{
		c.ID,
		c.Title,
		username,
		url,
		channelType(c),
		intOr(c.ParticipantsCount, "N/A"),
		yesNo(c.Verified),
		yesNo(c.Scam),
		yesNo(c.Restricted),
		c.AccessHash,
	}
}

// ChannelInfoColumns is the column contract of the channel info table.
var ChannelInfoColumns = []string{
	"Channel", "Title", "ID", "Username", "URL", "Type", "Participants", "About",
	"Created (UTC)", "Verified", "Scam", "Restricted",
}

// ChannelInfoRow is the channel info view for one requested name.
type ChannelInfoRow struct {
	Input string
	Info  ChannelInfo
}

// Values renders the row in ChannelInfoColumns order.
func (r ChannelInfoRow) Values() []any {
	c := r.Info

	username, url := NotAvailable, NoURL
	if c.Username != "" {
		username = c.Username
		url = "https://t.me/" + c.Username
	}

	return []any{
		r.Input,
		c.Title,
		c.ID,
		username,
		url,
		channelType(c),
		intOr(c.ParticipantsCount, NotAvailable),
		stringOr(c.About, NotAvailable),
		timeOr(c.Created, NotAvailable),
		yesNo(c.Verified),
		yesNo(c.Scam),
		yesNo(c.Restricted),
	}
}

func channelType(c ChannelInfo) string {
	switch {
	case c.Broadcast:
		return "Channel"
	case c.Megagroup:
		return "Supergroup"
	default:
		return "Group"
	}
}

func groupKey(id *int64) (string, bool) {
	if id == nil {
		return "", false
	}

	return strconv.FormatInt(*id, 10), true
}

func groupOr(id *int64) any {
	if key, ok := groupKey(id); ok {
		return key
	}

	return NotAvailable
}

func intOr(v *int, fallback string) any {
	if v == nil {
		return fallback
	}

	return *v
}

func int64Or(v *int64, fallback string) any {
	if v == nil {
		return fallback
	}

	return *v
}

func strPtrOr(v *string, fallback string) any {
	if v == nil {
		return fallback
	}

	return *v
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}

func timeOr(t time.Time, fallback string) any {
	if t.IsZero() {
		return fallback
	}

	return t.UTC().Format(DateTimeLayout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
