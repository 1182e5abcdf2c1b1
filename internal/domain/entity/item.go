package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxGUIDBytes bounds the derived item GUID to keep the unique (feed_id,
// guid) index small even for feeds whose entries have unbounded titles.
const MaxGUIDBytes = 512

// MaxTitleBytes and MaxURLBytes bound the corresponding Item fields; values
// beyond these lengths are truncated rather than rejected, since truncation
// still yields a usable (if imprecise) record.
const (
	MaxTitleBytes = 1024
	MaxURLBytes   = 2048
	MaxImageBytes = 2048
)

// Item represents one syndication entry normalized and persisted from a feed.
type Item struct {
	ID          uuid.UUID
	FeedID      uuid.UUID
	GUID        string
	Title       *string
	URL         *string
	ImageURL    *string
	ContentHTML *string
	ContentText *string
	PublishedAt *time.Time
	FetchedAt   time.Time
	Hash        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the structural invariants of an Item.
func (i *Item) Validate() error {
	if i.FeedID == uuid.Nil {
		return &ValidationError{Field: "feed_id", Message: "feed_id is required"}
	}
	if i.GUID == "" {
		return &ValidationError{Field: "guid", Message: "guid is required"}
	}
	if len(i.GUID) > MaxGUIDBytes {
		return &ValidationError{Field: "guid", Message: fmt.Sprintf("must not exceed %d bytes", MaxGUIDBytes)}
	}
	if i.Hash == "" {
		return &ValidationError{Field: "hash", Message: "hash is required"}
	}
	return nil
}

// DeriveGUID implements the three-tier identity-derivation rule for a
// syndication entry: prefer the feed-supplied identifier, then the entry
// link, then a content-derived hash of title and published time. The result
// is truncated to MaxGUIDBytes.
//
// candidateID and link are the entry's identifier and URL as reported by the
// parser; title and published are used only when both of the former are
// empty. An entry with no identifier, no link, and no title has no stable
// identity at all, and ok is false; a published timestamp alone is not
// identity, since two distinct entries can share one.
func DeriveGUID(candidateID, link, title string, published *time.Time) (guid string, ok bool) {
	guid = candidateID
	if guid == "" {
		guid = link
	}
	if guid == "" {
		if title == "" {
			return "", false
		}
		publishedKey := ""
		if published != nil {
			publishedKey = published.UTC().Format(time.RFC3339)
		}
		sum := sha256.Sum256([]byte(title + publishedKey))
		guid = hex.EncodeToString(sum[:])
	}
	if len(guid) > MaxGUIDBytes {
		guid = guid[:MaxGUIDBytes]
	}
	return guid, true
}

// ComputeContentHash hashes the first non-empty field among contentHTML,
// contentText, title, and url, in that order. Two items with the same
// content in different shapes (HTML vs. plain text) hash identically only
// when the preferred field is identical; the order is a priority, not a
// merge.
func ComputeContentHash(contentHTML, contentText, title, url string) string {
	for _, candidate := range []string{contentHTML, contentText, title, url} {
		if candidate != "" {
			sum := sha256.Sum256([]byte(candidate))
			return hex.EncodeToString(sum[:])
		}
	}
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}

// truncate clips a string to at most n bytes, used when persisting
// feed-supplied text that may exceed the column's soft limit.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// TruncateTitle clips a title to MaxTitleBytes.
func TruncateTitle(s string) string { return truncate(s, MaxTitleBytes) }

// TruncateURL clips a URL to MaxURLBytes.
func TruncateURL(s string) string { return truncate(s, MaxURLBytes) }

// TruncateImageURL clips an image URL to MaxImageBytes.
func TruncateImageURL(s string) string { return truncate(s, MaxImageBytes) }
