// Package feedparser turns raw syndication bytes into the normalized Entry
// shape the item normalizer consumes, using github.com/mmcdole/gofeed so
// RSS, Atom, and JSON Feed documents all parse through one path. Entries
// expose identifier candidates and media attachments rather than a
// flattened record, since identity derivation and image resolution need
// the precedence order preserved.
package feedparser

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// ErrUnparseable indicates the document was syntactically unparseable and
// exposed no recoverable entries.
var ErrUnparseable = errors.New("unparseable feed")

// MediaCandidate is one image-bearing attachment found on an entry, ordered
// by the precedence the item normalizer applies when resolving ImageURL.
type MediaCandidate struct {
	Source string // "media:thumbnail", "enclosure", "link", "media:content"
	URL    string
}

// Entry is one syndication entry, shaped for identity derivation, hashing,
// and image-URL resolution by the item normalizer.
type Entry struct {
	ID          string // explicit identifier, e.g. guid/atom:id, if present
	Link        string
	Title       string
	PublishedAt *time.Time
	ContentHTML string
	Media       []MediaCandidate
}

// ParseResult is the outcome of parsing one feed document.
type ParseResult struct {
	// FeedTitle is propagated into Feed.Title only when the feed has none
	// yet; empty when the document carries no title.
	FeedTitle string
	Entries   []Entry
	// Partial is true when the underlying parser reported an error but at
	// least one entry was still recovered: the "malformed but partial"
	// case, which still persists its entries.
	Partial bool
}

// Parser parses syndication documents into ParseResults.
type Parser struct {
	fp *gofeed.Parser
}

// New constructs a Parser with the given User-Agent, matching this
// codebase's convention of identifying itself to upstream servers.
func New(userAgent string) *Parser {
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	return &Parser{fp: fp}
}

// Parse parses a syndication document read from r. If the document is
// syntactically unparseable and yields no entries, it returns
// ErrUnparseable. If it is malformed but at least one entry can still be
// extracted, it returns those entries with Partial set, not an error;
// callers proceed and persist whatever was recovered.
func (p *Parser) Parse(r io.Reader) (ParseResult, error) {
	feed, parseErr := p.fp.Parse(r)
	if feed == nil || len(feed.Items) == 0 {
		if parseErr != nil {
			return ParseResult{}, errors.Join(ErrUnparseable, parseErr)
		}
		if feed == nil {
			return ParseResult{}, ErrUnparseable
		}
	}

	result := ParseResult{Partial: parseErr != nil}
	if feed != nil {
		result.FeedTitle = strings.TrimSpace(feed.Title)
		result.Entries = make([]Entry, 0, len(feed.Items))
		for _, item := range feed.Items {
			result.Entries = append(result.Entries, toEntry(item))
		}
	}
	return result, nil
}

func toEntry(item *gofeed.Item) Entry {
	e := Entry{
		ID:          strings.TrimSpace(item.GUID),
		Link:        strings.TrimSpace(item.Link),
		Title:       strings.TrimSpace(item.Title),
		PublishedAt: preferPublished(item),
		ContentHTML: preferContent(item),
	}
	e.Media = collectMedia(item, e.ContentHTML)
	return e
}

// preferPublished prefers the canonical "published" timestamp, falling back
// to "updated" when the entry carries no published date.
func preferPublished(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}
	if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		return &t
	}
	return nil
}

// preferContent prefers the richest inline content field: the full
// content[0]/content:encoded body over the summary/description.
func preferContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}

// collectMedia walks media:thumbnail, image-typed enclosures, image-typed
// links, media:content, and finally the item's own Image, in the precedence
// order the item normalizer's image-URL resolution expects. A URL reached
// through more than one of these sources is kept once, at its first
// position. The caller
// additionally falls back to scanning contentHTML for an <img> tag when
// none of these yield a candidate.
func collectMedia(item *gofeed.Item, _ string) []MediaCandidate {
	var media []MediaCandidate

	if item.Extensions != nil {
		if mediaExt, ok := item.Extensions["media"]; ok {
			for _, url := range extensionURLs(mediaExt["thumbnail"]) {
				media = append(media, MediaCandidate{Source: "media:thumbnail", URL: url})
			}
		}
	}

	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "image/") {
			media = append(media, MediaCandidate{Source: "enclosure", URL: enc.URL})
		}
	}

	for _, link := range item.Links {
		if isImageURL(link) {
			media = append(media, MediaCandidate{Source: "link", URL: link})
		}
	}

	if item.Extensions != nil {
		if mediaExt, ok := item.Extensions["media"]; ok {
			for _, url := range extensionURLs(mediaExt["content"]) {
				media = append(media, MediaCandidate{Source: "media:content", URL: url})
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		media = append(media, MediaCandidate{Source: "media:content", URL: item.Image.URL})
	}

	// gofeed can surface one image through several of the fields above
	// (an image enclosure is also reported as the item's Image).
	unique := media[:0]
	seen := make(map[string]bool, len(media))
	for _, m := range media {
		if !seen[m.URL] {
			seen[m.URL] = true
			unique = append(unique, m)
		}
	}
	return unique
}

func extensionURLs(exts []ext.Extension) []string {
	urls := make([]string, 0, len(exts))
	for _, e := range exts {
		if u, ok := e.Attrs["url"]; ok && u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}

func isImageURL(u string) bool {
	lower := strings.ToLower(u)
	for _, suffix := range imageExts {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
