package control

import (
	"context"
	"strings"
	"testing"
	"time"

	"feedpipe/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedRepo struct {
	feeds map[uuid.UUID]*entity.Feed
}

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{feeds: make(map[uuid.UUID]*entity.Feed)}
}

func (f *fakeFeedRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Feed, error) {
	if feed, ok := f.feeds[id]; ok {
		return feed, nil
	}
	return nil, entity.ErrNotFound
}

func (f *fakeFeedRepo) GetByURL(ctx context.Context, url string) (*entity.Feed, error) {
	for _, feed := range f.feeds {
		if feed.URL == url {
			return feed, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (f *fakeFeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	out := make([]*entity.Feed, 0, len(f.feeds))
	for _, feed := range f.feeds {
		out = append(out, feed)
	}
	return out, nil
}

func (f *fakeFeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	f.feeds[feed.ID] = feed
	return nil
}

func (f *fakeFeedRepo) Update(ctx context.Context, feed *entity.Feed) error { return nil }
func (f *fakeFeedRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }

func (f *fakeFeedRepo) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Feed, error) {
	return nil, nil
}

func (f *fakeFeedRepo) TouchNextRunAt(ctx context.Context, id uuid.UUID, asOf time.Time) error {
	feed, ok := f.feeds[id]
	if !ok {
		return entity.ErrNotFound
	}
	feed.NextRunAt = asOf
	return nil
}

func (f *fakeFeedRepo) TouchNextRunAll(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.feeds))
	for id, feed := range f.feeds {
		feed.NextRunAt = asOf
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeFeedRepo) PromoteDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Feed, error) {
	return nil, nil
}

type fakeItemRepo struct {
	deleted int64
}

func (f *fakeItemRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Item, error) {
	return nil, entity.ErrNotFound
}
func (f *fakeItemRepo) ListByFeed(ctx context.Context, feedID uuid.UUID) ([]*entity.Item, error) {
	return nil, nil
}
func (f *fakeItemRepo) ExistingGUIDs(ctx context.Context, feedID uuid.UUID, guids []string) (map[string]bool, error) {
	return nil, nil
}
func (f *fakeItemRepo) InsertBatch(ctx context.Context, items []*entity.Item) ([]*entity.Item, error) {
	return items, nil
}
func (f *fakeItemRepo) DeleteAllByFeed(ctx context.Context, feedID uuid.UUID) (int64, error) {
	return 0, nil
}
func (f *fakeItemRepo) DeleteAll(ctx context.Context) (int64, error) { return f.deleted, nil }

type fakeReadStateRepo struct{}

func (f *fakeReadStateRepo) DeleteAllByFeed(ctx context.Context, feedID uuid.UUID) (int64, error) {
	return 0, nil
}
func (f *fakeReadStateRepo) DeleteAll(ctx context.Context) (int64, error) { return 0, nil }

type fakeEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueNow(feedID uuid.UUID, url string) {
	f.enqueued = append(f.enqueued, feedID)
}

func newService(feeds *fakeFeedRepo, items *fakeItemRepo, enq *fakeEnqueuer) *Service {
	return New(feeds, items, &fakeReadStateRepo{}, enq, entity.DefaultIntervalSeconds*time.Second)
}

func TestEnqueueNow(t *testing.T) {
	feeds := newFakeFeedRepo()
	feed, err := entity.NewFeed("https://example.com/feed", time.Now())
	require.NoError(t, err)
	feed.NextRunAt = time.Now().Add(time.Hour)
	feeds.feeds[feed.ID] = feed
	enq := &fakeEnqueuer{}
	svc := newService(feeds, &fakeItemRepo{}, enq)

	before := time.Now()
	require.NoError(t, svc.EnqueueNow(context.Background(), feed.ID))
	require.Len(t, enq.enqueued, 1)
	assert.Equal(t, feed.ID, enq.enqueued[0])

	// The feed's future slot is pulled forward to now alongside the push.
	assert.False(t, feed.NextRunAt.Before(before))
	assert.False(t, feed.NextRunAt.After(time.Now()))
}

func TestEnqueueNow_UnknownFeed(t *testing.T) {
	svc := newService(newFakeFeedRepo(), &fakeItemRepo{}, &fakeEnqueuer{})
	err := svc.EnqueueNow(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPurgeAllItems(t *testing.T) {
	feeds := newFakeFeedRepo()
	for _, url := range []string{"https://a.example.com/rss", "https://b.example.com/rss"} {
		feed, err := entity.NewFeed(url, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		feed.NextRunAt = time.Now().Add(time.Hour)
		feeds.feeds[feed.ID] = feed
	}
	items := &fakeItemRepo{deleted: 42}
	enq := &fakeEnqueuer{}
	svc := newService(feeds, items, enq)

	before := time.Now()
	deleted, requeued, err := svc.PurgeAllItems(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), deleted)
	assert.Equal(t, 2, requeued)
	assert.Len(t, enq.enqueued, 2)
	for _, feed := range feeds.feeds {
		assert.False(t, feed.NextRunAt.After(time.Now()), "NextRunAt should be touched to now")
		assert.False(t, feed.NextRunAt.Before(before.Add(-time.Second)))
	}
}

const importDoc = `<?xml version="1.0"?>
<opml version="2.0">
  <body>
    <outline type="rss" text="Feed A" xmlUrl="https://a.example.com/rss"/>
    <outline type="rss" text="Feed B" xmlUrl="https://b.example.com/rss"/>
    <outline type="rss" text="Broken" xmlUrl="ftp://bad.example.com/rss"/>
  </body>
</opml>`

func TestImportFeeds(t *testing.T) {
	feeds := newFakeFeedRepo()
	existing, err := entity.NewFeed("https://a.example.com/rss", time.Now())
	require.NoError(t, err)
	feeds.feeds[existing.ID] = existing

	svc := newService(feeds, &fakeItemRepo{}, &fakeEnqueuer{})

	result, err := svc.ImportFeeds(context.Background(), strings.NewReader(importDoc))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created, "only Feed B is new and valid")
	assert.Equal(t, 1, result.Skipped, "Feed A already subscribed")
	assert.Len(t, result.Errors, 1, "ftp URL rejected")

	created, err := feeds.GetByURL(context.Background(), "https://b.example.com/rss")
	require.NoError(t, err)
	require.NotNil(t, created.Title)
	assert.Equal(t, "Feed B", *created.Title)
	assert.Equal(t, entity.DefaultIntervalSeconds, created.IntervalSeconds)
	assert.True(t, created.NextRunAt.After(time.Now().Add(-time.Minute)))
}

func TestImportFeeds_AppliesConfiguredDefaultInterval(t *testing.T) {
	feeds := newFakeFeedRepo()
	svc := New(feeds, &fakeItemRepo{}, &fakeReadStateRepo{}, &fakeEnqueuer{}, 30*time.Minute)

	doc := `<opml version="2.0"><body>
  <outline type="rss" text="A" xmlUrl="https://a.example.com/rss"/>
</body></opml>`
	result, err := svc.ImportFeeds(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	created, err := feeds.GetByURL(context.Background(), "https://a.example.com/rss")
	require.NoError(t, err)
	assert.Equal(t, 1800, created.IntervalSeconds)
}

func TestImportFeeds_InvalidDocument(t *testing.T) {
	svc := newService(newFakeFeedRepo(), &fakeItemRepo{}, &fakeEnqueuer{})
	_, err := svc.ImportFeeds(context.Background(), strings.NewReader("< not opml"))
	assert.Error(t, err)
}

func TestExportThenImportRoundTrips(t *testing.T) {
	feeds := newFakeFeedRepo()
	urls := []string{"https://a.example.com/rss", "https://b.example.com/atom.xml", "https://c.example.com/feed"}
	for _, url := range urls {
		feed, err := entity.NewFeed(url, time.Now())
		require.NoError(t, err)
		feeds.feeds[feed.ID] = feed
	}
	svc := newService(feeds, &fakeItemRepo{}, &fakeEnqueuer{})

	exported, err := svc.ExportFeeds(context.Background())
	require.NoError(t, err)

	// Importing into an empty repo recreates the same feed set by URL.
	freshFeeds := newFakeFeedRepo()
	freshSvc := newService(freshFeeds, &fakeItemRepo{}, &fakeEnqueuer{})
	result, err := freshSvc.ImportFeeds(context.Background(), strings.NewReader(string(exported)))
	require.NoError(t, err)
	assert.Equal(t, len(urls), result.Created)

	for _, url := range urls {
		_, err := freshFeeds.GetByURL(context.Background(), url)
		assert.NoError(t, err, "missing %s after round-trip", url)
	}
}
