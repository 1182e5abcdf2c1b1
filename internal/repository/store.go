package repository

import (
	"context"

	"feedpipe/internal/domain/entity"
)

// FetchCommitter performs the compound write one feed fetch produces: bulk
// item upsert, feed fetch-metadata update, and fetch-log append, all inside
// a single transaction. A failed call leaves no items visible and no feed
// metadata advanced, matching the persistent store's transactional
// guarantee; the scheduler will retry the feed on its own clock rather than
// this call retrying internally.
type FetchCommitter interface {
	// CommitFetch writes feed (its fetch-outcome fields, already applied by
	// the caller via entity.Feed.ApplyFetchOutcome), the candidate items
	// (deduplicated by the caller but tolerated again here via ON CONFLICT),
	// and log in one transaction. It returns the subset of items Postgres
	// actually inserted.
	CommitFetch(ctx context.Context, feed *entity.Feed, items []*entity.Item, log *entity.FetchLog) ([]*entity.Item, error)
}
