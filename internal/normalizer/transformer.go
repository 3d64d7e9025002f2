package normalizer

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"tgforge/internal/models"
)

// SnippetLength bounds the parent text carried by reply rows.
const SnippetLength = 100

// Transformer extracts derived fields from item text and metadata.
type Transformer struct {
	urlPattern      *regexp.Regexp
	schemePattern   *regexp.Regexp
	trailingPattern *regexp.Regexp
	domainTail      *regexp.Regexp
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		urlPattern:      regexp.MustCompile(`https?://\S+`),
		schemePattern:   regexp.MustCompile(`^https?://(www\.)?`),
		trailingPattern: regexp.MustCompile(`[),]+$`),
		domainTail:      regexp.MustCompile(`[^\w.-]+$`),
	}
}

// Hashtags returns the whitespace separated tokens starting with '#'.
func (t *Transformer) Hashtags(text string) []string {
	var tags []string

	for _, tok := range strings.Fields(text) {
		if strings.HasPrefix(tok, "#") {
			tags = append(tags, tok)
		}
	}

	return tags
}

// URLs returns every http(s) link in text as written.
func (t *Transformer) URLs(text string) []string {
	return t.urlPattern.FindAllString(text, -1)
}

// NormalizeURL strips scheme, "www." and trailing punctuation and lowercases.
func (t *Transformer) NormalizeURL(raw string) string {
	s := t.schemePattern.ReplaceAllString(raw, "")
	s = t.trailingPattern.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".,)")

	return strings.ToLower(s)
}

// Domain returns the normalized host of a link, or "" if it has none.
func (t *Transformer) Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.TrimPrefix(u.Host, "www.")
	host = t.domainTail.ReplaceAllString(host, "")

	return strings.ToLower(host)
}

// MessageType returns the media kind, or "Text" for items without media.
func (t *Transformer) MessageType(item models.RawItem) string {
	if item.MediaKind == "" {
		return "Text"
	}

	return item.MediaKind
}

// Geo formats a coordinate as "lat, long".
func (t *Transformer) Geo(g *models.GeoPoint) string {
	if g == nil {
		return models.NoGeo
	}

	return strconv.FormatFloat(g.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(g.Long, 'f', -1, 64)
}

// Permalink builds the public link of an item, if the handle allows it.
func (t *Transformer) Permalink(username string, id int) string {
	if username == "" || id <= 0 {
		return models.NoURL
	}

	return fmt.Sprintf("https://t.me/%s/%d", username, id)
}

// Snippet bounds a parent text for reply rows.
func (t *Transformer) Snippet(text string) string {
	if text == "" {
		return models.NoText
	}

	r := []rune(text)
	if len(r) > SnippetLength {
		r = r[:SnippetLength]
	}

	return string(r) + "..."
}

// Engagement sums the additive counts, treating absent ones as zero.
func (t *Transformer) Engagement(item models.RawItem) int {
	total := 0

	for _, c := range []*int{item.Reactions, item.Replies, item.Forwards} {
		if c != nil {
			total += *c
		}
	}

	return total
}

// OriginUsername names where a forwarded item came from.
func (t *Transformer) OriginUsername(fwd *models.ForwardHeader) string {
	switch {
	case fwd == nil:
		return models.NotAvailable
	case fwd.HasChat && fwd.ChatUsername != "":
		return fwd.ChatUsername
	default:
		return models.Unknown
	}
}
