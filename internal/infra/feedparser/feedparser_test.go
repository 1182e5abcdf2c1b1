package feedparser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssTwoEntries = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Example Feed</title>
    <link>https://example.com/</link>
    <item>
      <guid>urn:a</guid>
      <title>First</title>
      <link>https://example.com/a</link>
      <pubDate>Mon, 19 Jan 2025 12:00:00 GMT</pubDate>
      <description>&lt;p&gt;first body&lt;/p&gt;</description>
    </item>
    <item>
      <guid>urn:b</guid>
      <title>Second</title>
      <link>https://example.com/b</link>
      <enclosure url="https://example.com/b.jpg" type="image/jpeg" length="1000"/>
      <description>second body</description>
    </item>
  </channel>
</rss>`

func TestParse_RSSEntries(t *testing.T) {
	p := New("feedpipe-test/1.0")

	result, err := p.Parse(strings.NewReader(rssTwoEntries))
	require.NoError(t, err)

	assert.Equal(t, "Example Feed", result.FeedTitle)
	assert.False(t, result.Partial)
	require.Len(t, result.Entries, 2)

	first := result.Entries[0]
	assert.Equal(t, "urn:a", first.ID)
	assert.Equal(t, "https://example.com/a", first.Link)
	assert.Equal(t, "First", first.Title)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, time.Date(2025, 1, 19, 12, 0, 0, 0, time.UTC), first.PublishedAt.UTC())
	assert.Contains(t, first.ContentHTML, "first body")

	second := result.Entries[1]
	require.Len(t, second.Media, 1)
	assert.Equal(t, "enclosure", second.Media[0].Source)
	assert.Equal(t, "https://example.com/b.jpg", second.Media[0].URL)
}

func TestParse_AtomPrefersPublishedOverUpdated(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <id>tag:example.com,2025:1</id>
    <title>Entry</title>
    <link href="https://example.com/1"/>
    <published>2025-01-10T08:00:00Z</published>
    <updated>2025-01-15T09:30:00Z</updated>
    <content type="html">&lt;p&gt;full content&lt;/p&gt;</content>
    <summary>short summary</summary>
  </entry>
</feed>`

	result, err := New("feedpipe-test/1.0").Parse(strings.NewReader(atom))
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	e := result.Entries[0]
	require.NotNil(t, e.PublishedAt)
	assert.Equal(t, time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC), e.PublishedAt.UTC())
	assert.Contains(t, e.ContentHTML, "full content")
}

func TestParse_FallsBackToUpdated(t *testing.T) {
	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <id>tag:example.com,2025:2</id>
    <title>Updated Only</title>
    <updated>2025-02-01T00:00:00Z</updated>
  </entry>
</feed>`

	result, err := New("feedpipe-test/1.0").Parse(strings.NewReader(atom))
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.NotNil(t, result.Entries[0].PublishedAt)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), result.Entries[0].PublishedAt.UTC())
}

func TestParse_SummaryWhenNoContent(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
  <item><guid>x</guid><title>X</title><description>only summary</description></item>
</channel></rss>`

	result, err := New("feedpipe-test/1.0").Parse(strings.NewReader(rss))
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "only summary", result.Entries[0].ContentHTML)
}

func TestParse_MediaThumbnailPrecedesEnclosure(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel><title>T</title>
    <item>
      <guid>m</guid><title>M</title>
      <media:thumbnail url="https://example.com/thumb.png"/>
      <enclosure url="https://example.com/full.jpg" type="image/jpeg" length="1"/>
    </item>
  </channel>
</rss>`

	result, err := New("feedpipe-test/1.0").Parse(strings.NewReader(rss))
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	media := result.Entries[0].Media
	require.NotEmpty(t, media)
	assert.Equal(t, "media:thumbnail", media[0].Source)
	assert.Equal(t, "https://example.com/thumb.png", media[0].URL)
}

func TestParse_Unparseable(t *testing.T) {
	_, err := New("feedpipe-test/1.0").Parse(strings.NewReader("this is not xml or json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := New("feedpipe-test/1.0").Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParse_ImageTypedLink(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>T</title>
  <item><guid>l</guid><title>L</title><link>https://example.com/cover.webp</link></item>
</channel></rss>`

	result, err := New("feedpipe-test/1.0").Parse(strings.NewReader(rss))
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	media := result.Entries[0].Media
	require.Len(t, media, 1)
	assert.Equal(t, "link", media[0].Source)
}
