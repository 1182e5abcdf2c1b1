// Package entity defines the core domain entities and validation logic for the
// feed pipeline. It contains the fundamental business objects (Feed, Item,
// ReadState, FetchLog, and Category) along with their validation rules and
// domain-specific errors.
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultIntervalSeconds is the fetch interval assigned to a feed that does
// not specify one, e.g. on OPML import.
const DefaultIntervalSeconds = 900

// MinIntervalSeconds is the lowest fetch interval a feed may be configured
// with. Shorter intervals are rejected by Validate to keep a single
// misconfigured feed from dominating the per-host politeness gate.
const MinIntervalSeconds = 60

// Feed represents a subscribed syndication source polled by the pipeline.
type Feed struct {
	ID              uuid.UUID
	URL             string
	Title           *string
	ETag            *string
	LastModified    *time.Time
	LastFetchAt     *time.Time
	LastStatus      *int
	NextRunAt       time.Time
	IntervalSeconds int
	PerHostKey      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewFeed constructs a Feed ready for insertion: a fresh ID, the per-host key
// derived from the URL's authority, and NextRunAt set per the import
// behavior (now + 5s, so a freshly added feed is promoted on the scheduler's
// next tick rather than waiting out a full interval).
func NewFeed(rawURL string, now time.Time) (*Feed, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}
	host, err := hostAuthority(rawURL)
	if err != nil {
		return nil, err
	}
	return &Feed{
		ID:              uuid.New(),
		URL:             rawURL,
		NextRunAt:       now.Add(5 * time.Second),
		IntervalSeconds: DefaultIntervalSeconds,
		PerHostKey:      host,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Validate checks the structural invariants of a Feed.
func (f *Feed) Validate() error {
	if f.ID == uuid.Nil {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	if err := ValidateURL(f.URL); err != nil {
		return err
	}
	if f.IntervalSeconds < MinIntervalSeconds {
		return &ValidationError{
			Field:   "interval_seconds",
			Message: fmt.Sprintf("must be at least %d seconds", MinIntervalSeconds),
		}
	}
	if f.PerHostKey == "" {
		return &ValidationError{Field: "per_host_key", Message: "per_host_key is required"}
	}
	return nil
}

// Advance moves NextRunAt forward by IntervalSeconds from the given
// reference time. Called by the scheduler once a feed has been promoted
// into a job.
func (f *Feed) Advance(from time.Time) {
	f.NextRunAt = from.Add(time.Duration(f.IntervalSeconds) * time.Second)
}

// ApplyFetchOutcome records the result of one fetch attempt onto the feed,
// following the conditional-update rule: LastFetchAt and LastStatus are
// always written, while ETag, LastModified, and Title are only overwritten
// when the fetch produced a non-nil value for them.
func (f *Feed) ApplyFetchOutcome(fetchedAt time.Time, statusCode int, etag, lastModified, title *string) {
	f.LastFetchAt = &fetchedAt
	f.LastStatus = &statusCode
	if etag != nil {
		f.ETag = etag
	}
	if lastModified != nil {
		parsed, err := time.Parse(time.RFC1123, *lastModified)
		if err == nil {
			f.LastModified = &parsed
		}
	}
	if title != nil {
		f.Title = title
	}
	f.UpdatedAt = fetchedAt
}
