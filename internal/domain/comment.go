package domain

import "time"

// Comment is a remark attached to a ticket thread. Internal comments are
// visible to staff only; the flag is interpreted by the presentation layer.
// Comments are immutable once created.
type Comment struct {
	ID         int64
	TicketID   int64
	Body       string
	AuthorID   int64
	Internal   bool
	CreatedAt  time.Time
	AuthorName string
}
