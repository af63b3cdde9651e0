package dto

import (
	"time"

	"github.com/supportdesk/ticket-system/internal/domain"
	"github.com/supportdesk/ticket-system/internal/service"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// UpdateTicketRequest payload. Absent fields are left unchanged.
type UpdateTicketRequest struct {
	TicketID   int64   `json:"ticket_id"`
	AssignedTo *int64  `json:"assigned_to"`
	Status     *string `json:"status"`
	Comment    string  `json:"comment"`
}

// AddCommentRequest payload.
type AddCommentRequest struct {
	TicketID    int64  `json:"ticket_id"`
	CommentText string `json:"comment_text"`
	IsInternal  bool   `json:"is_internal"`
}

// TicketResponse is the denormalized ticket view.
type TicketResponse struct {
	ID             int64     `json:"id"`
	TicketNumber   string    `json:"ticket_number"`
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	Priority       string    `json:"priority"`
	Status         string    `json:"status"`
	CreatedBy      int64     `json:"created_by"`
	AssignedTo     *int64    `json:"assigned_to"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedByName  string    `json:"created_by_name"`
	AssignedToName *string   `json:"assigned_to_name"`
}

// HistoryEntryResponse is one audit trail row.
type HistoryEntryResponse struct {
	ID            int64     `json:"id"`
	TicketID      int64     `json:"ticket_id"`
	OldStatus     *string   `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	ChangedBy     int64     `json:"changed_by"`
	Comment       *string   `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
	ChangedByName string    `json:"changed_by_name"`
}

// CommentResponse is one thread comment.
type CommentResponse struct {
	ID          int64     `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	CommentText string    `json:"comment_text"`
	CommentedBy int64     `json:"commented_by"`
	IsInternal  bool      `json:"is_internal"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorName  string    `json:"author_name"`
}

// TicketDetailsResponse bundles a ticket with its history and comments.
type TicketDetailsResponse struct {
	Ticket        TicketResponse         `json:"ticket"`
	StatusHistory []HistoryEntryResponse `json:"status_history"`
	Comments      []CommentResponse      `json:"comments"`
}

// FromTicket maps a domain ticket into its response shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             t.ID,
		TicketNumber:   t.Number,
		Subject:        t.Subject,
		Description:    t.Description,
		Priority:       t.Priority.Display(),
		Status:         t.Status.Display(),
		CreatedBy:      t.CreatorID,
		AssignedTo:     t.AssigneeID,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		CreatedByName:  t.CreatorName,
		AssignedToName: t.AssigneeName,
	}
}

// FromTickets maps a slice of tickets.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, FromTicket(&tickets[i]))
	}
	return result
}

// FromHistoryEntry maps one ledger entry.
func FromHistoryEntry(e *domain.StatusHistoryEntry) HistoryEntryResponse {
	var oldStatus *string
	if e.OldStatus != nil {
		display := e.OldStatus.Display()
		oldStatus = &display
	}
	return HistoryEntryResponse{
		ID:            e.ID,
		TicketID:      e.TicketID,
		OldStatus:     oldStatus,
		NewStatus:     e.NewStatus.Display(),
		ChangedBy:     e.ActorID,
		Comment:       e.Comment,
		CreatedAt:     e.CreatedAt,
		ChangedByName: e.ActorName,
	}
}

// FromComment maps one thread comment.
func FromComment(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:          c.ID,
		TicketID:    c.TicketID,
		CommentText: c.Body,
		CommentedBy: c.AuthorID,
		IsInternal:  c.Internal,
		CreatedAt:   c.CreatedAt,
		AuthorName:  c.AuthorName,
	}
}

// FromTicketDetails maps the full detail view.
func FromTicketDetails(details *service.TicketDetails) TicketDetailsResponse {
	history := make([]HistoryEntryResponse, 0, len(details.History))
	for i := range details.History {
		history = append(history, FromHistoryEntry(&details.History[i]))
	}
	comments := make([]CommentResponse, 0, len(details.Comments))
	for i := range details.Comments {
		comments = append(comments, FromComment(&details.Comments[i]))
	}
	return TicketDetailsResponse{
		Ticket:        FromTicket(&details.Ticket),
		StatusHistory: history,
		Comments:      comments,
	}
}
