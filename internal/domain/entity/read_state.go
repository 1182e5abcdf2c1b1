package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReadState tracks a reader's interaction with one item. It is owned by the
// external read/write API; the pipeline only creates the implicit unread
// state as a side effect of inserting an Item and never updates it directly.
type ReadState struct {
	ItemID  uuid.UUID
	ReadAt  *time.Time
	Starred bool
}
