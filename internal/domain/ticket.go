package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets. The set is closed:
// a ticket in CLOSED only accepts updates whose requested status is again
// CLOSED.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	}
	return false
}

// Display renders the human-readable spelling used by clients.
func (s TicketStatus) Display() string {
	switch s {
	case TicketStatusOpen:
		return "Open"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusClosed:
		return "Closed"
	}
	return string(s)
}

// ParseTicketStatus accepts both the canonical enum values and the display
// spellings ("In Progress", "closed") used by older clients.
func ParseTicketStatus(raw string) (TicketStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	status := TicketStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", raw)
	}
	return status, nil
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether the priority is one of the known levels.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Display renders the human-readable spelling.
func (p TicketPriority) Display() string {
	switch p {
	case TicketPriorityLow:
		return "Low"
	case TicketPriorityMedium:
		return "Medium"
	case TicketPriorityHigh:
		return "High"
	}
	return string(p)
}

// ParseTicketPriority parses a priority, defaulting to MEDIUM for empty input.
func ParseTicketPriority(raw string) (TicketPriority, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TicketPriorityMedium, nil
	}
	priority := TicketPriority(strings.ToUpper(trimmed))
	if !priority.Valid() {
		return "", fmt.Errorf("unknown ticket priority %q", raw)
	}
	return priority, nil
}

// Ticket is the aggregate for support requests. CreatorName and AssigneeName
// are denormalized from the users table on read paths and never written back.
type Ticket struct {
	ID           int64
	Number       string
	Subject      string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	CreatorID    int64
	AssigneeID   *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatorName  string
	AssigneeName *string
}
