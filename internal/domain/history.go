package domain

import "time"

// StatusHistoryEntry is an immutable audit record of a single status
// transition. OldStatus is nil only for the initial "created" entry.
type StatusHistoryEntry struct {
	ID        int64
	TicketID  int64
	OldStatus *TicketStatus
	NewStatus TicketStatus
	ActorID   int64
	Comment   *string
	CreatedAt time.Time
	ActorName string
}
