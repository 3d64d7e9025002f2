package normalizer

import (
	"errors"
	"testing"
	"time"

	"tgforge/internal/models"
)

func intPtr(v int) *int { return &v }

func testMeta() SourceMeta {
	return SourceMeta{
		Subscribers: intPtr(1200),
		Source:      models.Source{Key: "newsroom", Title: "The Newsroom", Username: "newsroom", ID: 777},
	}
}

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
}

func TestProcessor_Message_AllOptionalAbsent(t *testing.T) {
	p := NewProcessor()
	date := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

	row, err := p.Message(models.RawItem{ID: 42, Date: date, Text: "plain"}, testMeta())
	if err != nil {
		t.Fatalf("Message returned unexpected error: %v", err)
	}

	values := row.Values()
	get := func(col string) any {
		for i, c := range models.MessageColumns {
			if c == col {
				return values[i]
			}
		}

		t.Fatalf("unknown column %q", col)

		return nil
	}

	expected := map[string]any{
		"Channel":                  "The Newsroom",
		"Message Type":             "Text",
		"Is Forward":               false,
		"Origin Username":          models.NotAvailable,
		"Geo-location":             models.NoGeo,
		"Reactions":                models.NotAvailable,
		"Views":                    models.NotAvailable,
		"Forwards":                 models.NotAvailable,
		"Replies":                  models.NoReplies,
		"Total Engagement":         0,
		"Grouped ID":               models.NotAvailable,
		"Message URL":              "https://t.me/newsroom/42",
		"Sender User ID":           int64(777),
		"Sender Username":          "newsroom",
		"Message DateTime (UTC)":   "2024-05-01 12:30:00",
		"Reply To Message Snippet": "",
		"Platform":                 "Telegram",
	}

	for col, want := range expected {
		if got := get(col); got != want {
			t.Errorf("%s = %v (%T), want %v (%T)", col, got, got, want, want)
		}
	}

	if _, ok := row.GroupKey(); ok {
		t.Error("row without group id must not have a group key")
	}
}

func TestProcessor_Message_SubscribersUnavailable(t *testing.T) {
	p := NewProcessor()
	meta := testMeta()
	meta.Subscribers = nil

	row, err := p.Message(models.RawItem{ID: 1, Text: "plain"}, meta)
	if err != nil {
		t.Fatalf("Message returned unexpected error: %v", err)
	}

	if got := row.Values()[1]; got != models.NotAvailable {
		t.Errorf("Subscribers = %v, want %q", got, models.NotAvailable)
	}

	row, err = p.Message(models.RawItem{ID: 2, Text: "plain"}, testMeta())
	if err != nil {
		t.Fatalf("Message returned unexpected error: %v", err)
	}

	if got := row.Values()[1]; got != 1200 {
		t.Errorf("Subscribers = %v, want 1200", got)
	}
}

func TestProcessor_Message_WithEngagement(t *testing.T) {
	p := NewProcessor()
	group := int64(99)

	item := models.RawItem{
		ID:        7,
		Date:      time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Text:      "see https://www.Example.com/a #news",
		MediaKind: "MessageMediaPhoto",
		GroupID:   &group,
		Sender:    &models.User{ID: 5, Username: "alice"},
		Views:     intPtr(100),
		Forwards:  intPtr(3),
		Replies:   intPtr(2),
		Reactions: intPtr(10),
		Forward:   &models.ForwardHeader{HasChat: true, ChatUsername: "origin"},
		Geo:       &models.GeoPoint{Lat: 50.45, Long: 30.5234},
	}

	row, err := p.Message(item, testMeta())
	if err != nil {
		t.Fatalf("Message returned unexpected error: %v", err)
	}

	if row.TotalEngagement != 15 {
		t.Errorf("TotalEngagement = %d, want 15", row.TotalEngagement)
	}

	if row.SenderID != 5 || row.SenderUsername != "alice" {
		t.Errorf("sender = %d/%s, want 5/alice", row.SenderID, row.SenderUsername)
	}

	if row.MessageType != "MessageMediaPhoto" {
		t.Errorf("MessageType = %s", row.MessageType)
	}

	if row.OriginUsername != "origin" || !row.IsForward {
		t.Errorf("forward origin = %s (%v)", row.OriginUsername, row.IsForward)
	}

	if row.Geo != "50.45, 30.5234" {
		t.Errorf("Geo = %s", row.Geo)
	}

	if key, ok := row.GroupKey(); !ok || key != "99" {
		t.Errorf("GroupKey() = %s, %v", key, ok)
	}

	if len(row.Hashtags) != 1 || len(row.URLs) != 1 {
		t.Errorf("hashtags %v urls %v", row.Hashtags, row.URLs)
	}
}

func TestProcessor_Message_NoPublicHandle(t *testing.T) {
	p := NewProcessor()
	meta := SourceMeta{Source: models.Source{Key: "private", ID: 1}}

	row, err := p.Message(models.RawItem{ID: 3}, meta)
	if err != nil {
		t.Fatalf("Message returned unexpected error: %v", err)
	}

	if row.URL != models.NoURL {
		t.Errorf("URL = %s, want %s", row.URL, models.NoURL)
	}

	if row.Channel != "private" {
		t.Errorf("Channel = %s, want key fallback", row.Channel)
	}
}

func TestProcessor_Message_ValidationError(t *testing.T) {
	p := NewProcessor()

	if _, err := p.Message(models.RawItem{ID: 0}, testMeta()); !errors.Is(err, ErrMissingItemID) {
		t.Errorf("expected ErrMissingItemID, got %v", err)
	}
}

func TestProcessor_Reply(t *testing.T) {
	p := NewProcessor()
	long := ""

	for range 30 {
		long += "abcde"
	}

	parent := models.RawItem{ID: 10, Text: long, Sender: &models.User{Username: "bob"}}

	row, err := p.Reply(models.RawItem{ID: 11, Text: "reply"}, parent, testMeta())
	if err != nil {
		t.Fatalf("Reply returned unexpected error: %v", err)
	}

	if row.ParentID == nil || *row.ParentID != 10 {
		t.Errorf("ParentID = %v", row.ParentID)
	}

	if got := *row.ReplySnippet; len(got) != SnippetLength+3 || got[SnippetLength:] != "..." {
		t.Errorf("snippet = %q", got)
	}

	if *row.ReplySender != "bob" {
		t.Errorf("ReplySender = %s", *row.ReplySender)
	}

	row, err = p.Reply(models.RawItem{ID: 12}, models.RawItem{ID: 10}, testMeta())
	if err != nil {
		t.Fatalf("Reply returned unexpected error: %v", err)
	}

	if *row.ReplySnippet != models.NoText || *row.ReplySender != models.NotAvailable {
		t.Errorf("empty parent gave %q / %q", *row.ReplySnippet, *row.ReplySender)
	}
}

func TestProcessor_Forward(t *testing.T) {
	p := NewProcessor()
	origin := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)

	item := models.RawItem{
		ID:        20,
		Date:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		ReplyToID: 15,
		Forward: &models.ForwardHeader{
			Date:         origin,
			HasChat:      true,
			ChatTitle:    "Origin Channel",
			ChatUsername: "originchan",
			ChatID:       -100123,
			ChannelPost:  555,
		},
	}

	row, err := p.Forward(item, testMeta())
	if err != nil {
		t.Fatalf("Forward returned unexpected error: %v", err)
	}

	if row.OriginURL != "https://t.me/originchan/555" {
		t.Errorf("OriginURL = %s", row.OriginURL)
	}

	if row.ForwardedURL != "https://t.me/newsroom/20" {
		t.Errorf("ForwardedURL = %s", row.ForwardedURL)
	}

	if !row.SortTime().Equal(origin) {
		t.Errorf("SortTime() = %v, want origin date", row.SortTime())
	}

	values := row.Values()
	if values[7] != 15 {
		t.Errorf("Reply To = %v", values[7])
	}

	if values[6] != int64(-100123) {
		t.Errorf("Forwarded Chat ID = %v", values[6])
	}
}

func TestProcessor_Forward_UnknownOrigin(t *testing.T) {
	p := NewProcessor()

	row, err := p.Forward(models.RawItem{ID: 1, Forward: &models.ForwardHeader{}}, testMeta())
	if err != nil {
		t.Fatalf("Forward returned unexpected error: %v", err)
	}

	if row.OriginUsername != models.Unknown || row.OriginChatName != models.Unknown || row.OriginURL != models.NoURL {
		t.Errorf("unexpected origin fields: %+v", row)
	}

	values := row.Values()
	if values[6] != models.Unknown || values[7] != models.NoReply {
		t.Errorf("sentinels = %v, %v", values[6], values[7])
	}

	if _, err := p.Forward(models.RawItem{ID: 1}, testMeta()); !errors.Is(err, ErrNotForwarded) {
		t.Errorf("expected ErrNotForwarded, got %v", err)
	}
}
