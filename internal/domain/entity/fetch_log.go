package entity

import (
	"time"

	"github.com/google/uuid"
)

// FetchLog is an append-only record of one fetch attempt against a feed,
// written regardless of outcome so operators can audit fetch history without
// relying on the transient fetch_status event.
type FetchLog struct {
	ID         uuid.UUID
	FeedID     uuid.UUID
	StatusCode int
	DurationMS int
	Bytes      *int
	Error      *string
	FetchedAt  time.Time
}

// NewFetchLog builds a FetchLog entry for a completed fetch attempt.
func NewFetchLog(feedID uuid.UUID, statusCode int, duration time.Duration, bytes *int, fetchErr error, fetchedAt time.Time) *FetchLog {
	entry := &FetchLog{
		ID:         uuid.New(),
		FeedID:     feedID,
		StatusCode: statusCode,
		DurationMS: int(duration.Milliseconds()),
		Bytes:      bytes,
		FetchedAt:  fetchedAt,
	}
	if fetchErr != nil {
		msg := fetchErr.Error()
		entry.Error = &msg
	}
	return entry
}
