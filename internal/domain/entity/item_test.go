package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDeriveGUID_PrefersCandidateID(t *testing.T) {
	guid, ok := DeriveGUID("entry-123", "https://example.com/a", "Title", nil)
	assert.True(t, ok)
	assert.Equal(t, "entry-123", guid)
}

func TestDeriveGUID_FallsBackToLink(t *testing.T) {
	guid, ok := DeriveGUID("", "https://example.com/a", "Title", nil)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/a", guid)
}

func TestDeriveGUID_FallsBackToContentHash(t *testing.T) {
	published := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	guid, ok := DeriveGUID("", "", "Title", &published)
	assert.True(t, ok)
	assert.Len(t, guid, 64)
	again, _ := DeriveGUID("", "", "Title", &published)
	assert.Equal(t, guid, again)
	other, _ := DeriveGUID("", "", "Other title", &published)
	assert.NotEqual(t, guid, other)
}

func TestDeriveGUID_TitleWithoutPublished(t *testing.T) {
	guid, ok := DeriveGUID("", "", "Title only", nil)
	assert.True(t, ok)
	assert.Len(t, guid, 64)
}

func TestDeriveGUID_NoIdentityAtAll(t *testing.T) {
	published := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	guid, ok := DeriveGUID("", "", "", nil)
	assert.False(t, ok)
	assert.Empty(t, guid)

	// A published timestamp with nothing else is still no identity.
	guid, ok = DeriveGUID("", "", "", &published)
	assert.False(t, ok)
	assert.Empty(t, guid)
}

func TestDeriveGUID_TruncatesToMax(t *testing.T) {
	long := make([]byte, MaxGUIDBytes+100)
	for i := range long {
		long[i] = 'a'
	}
	guid, ok := DeriveGUID(string(long), "", "", nil)
	assert.True(t, ok)
	assert.Len(t, guid, MaxGUIDBytes)
}

func TestComputeContentHash_PrefersHTML(t *testing.T) {
	h1 := ComputeContentHash("<p>html</p>", "text", "title", "https://example.com")
	h2 := ComputeContentHash("<p>html</p>", "other text", "other title", "https://other.com")
	assert.Equal(t, h1, h2)
}

func TestComputeContentHash_FallsThroughToURL(t *testing.T) {
	h1 := ComputeContentHash("", "", "", "https://example.com/a")
	h2 := ComputeContentHash("", "", "", "https://example.com/b")
	assert.NotEqual(t, h1, h2)
}

func TestComputeContentHash_Deterministic(t *testing.T) {
	h1 := ComputeContentHash("", "text body", "", "")
	h2 := ComputeContentHash("", "text body", "", "")
	assert.Equal(t, h1, h2)
}

func TestItem_Validate(t *testing.T) {
	item := &Item{
		FeedID: uuid.New(),
		GUID:   "guid-1",
		Hash:   "hash-1",
	}
	assert.NoError(t, item.Validate())

	item.FeedID = uuid.Nil
	assert.Error(t, item.Validate())
}

func TestItem_Validate_RejectsOversizedGUID(t *testing.T) {
	long := make([]byte, MaxGUIDBytes+1)
	for i := range long {
		long[i] = 'a'
	}
	item := &Item{FeedID: uuid.New(), GUID: string(long), Hash: "h"}
	assert.Error(t, item.Validate())
}

func TestTruncateHelpers(t *testing.T) {
	long := make([]byte, MaxTitleBytes+10)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, TruncateTitle(string(long)), MaxTitleBytes)
	assert.Equal(t, "short", TruncateTitle("short"))
}
