// Package opml implements the subscription import/export format: a thin
// encoding/xml codec over the common outline shape (type/text/title/xmlUrl/
// htmlUrl attributes), so exports round-trip through other feed readers and
// imports accept their exports in turn.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"feedpipe/internal/domain/entity"
)

// Subscription is one parsed <outline> entry: a feed URL plus whatever title
// the exporting reader attached to it.
type Subscription struct {
	Title string
	URL   string
}

type opmlDocument struct {
	XMLName xml.Name    `xml:"opml"`
	Version string      `xml:"version,attr"`
	Head    opmlHead    `xml:"head"`
	Body    opmlBody    `xml:"body"`
}

type opmlHead struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Type     string        `xml:"type,attr,omitempty"`
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr,omitempty"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string        `xml:"htmlUrl,attr,omitempty"`
	Outlines []opmlOutline `xml:"outline"`
}

// Decode parses an OPML document and flattens every outline carrying an
// xmlUrl attribute into a Subscription, recursing into nested outlines
// (category folders) since a feed's xmlUrl may be nested several levels
// deep in readers that group subscriptions by folder.
func Decode(r io.Reader) ([]Subscription, error) {
	var doc opmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse opml: %w", err)
	}

	var subs []Subscription
	collectOutlines(doc.Body.Outlines, &subs)
	return subs, nil
}

func collectOutlines(outlines []opmlOutline, out *[]Subscription) {
	for _, o := range outlines {
		if o.XMLURL != "" {
			title := o.Text
			if title == "" {
				title = o.Title
			}
			if title == "" {
				title = o.XMLURL
			}
			*out = append(*out, Subscription{Title: title, URL: o.XMLURL})
		}
		if len(o.Outlines) > 0 {
			collectOutlines(o.Outlines, out)
		}
	}
}

// Encode renders feeds as an OPML 2.0 document, ordered by the caller (the
// control usecase orders by title then URL before calling this).
func Encode(w io.Writer, feeds []*entity.Feed, generatedAt time.Time) error {
	doc := opmlDocument{
		Version: "2.0",
		Head: opmlHead{
			Title:       "feedpipe subscriptions",
			DateCreated: generatedAt.UTC().Format(time.RFC1123),
		},
	}
	for _, f := range feeds {
		title := f.URL
		if f.Title != nil && strings.TrimSpace(*f.Title) != "" {
			title = *f.Title
		}
		doc.Body.Outlines = append(doc.Body.Outlines, opmlOutline{
			Type:    "rss",
			Text:    title,
			Title:   title,
			XMLURL:  f.URL,
			HTMLURL: f.URL,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode opml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
