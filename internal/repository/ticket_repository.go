package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/supportdesk/ticket-system/internal/domain"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// TicketRepository encapsulates ticket persistence. Read operations resolve
// creator and assignee display names with a join to users; a null assignee
// yields a nil name, never an error.
type TicketRepository interface {
	Create(ctx context.Context, q Querier, ticket *domain.Ticket) error
	GetByID(ctx context.Context, q Querier, id int64) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, q Querier, id int64) (*domain.Ticket, error)
	ListByCreator(ctx context.Context, q Querier, creatorID int64) ([]domain.Ticket, error)
	ListAll(ctx context.Context, q Querier) ([]domain.Ticket, error)
	ApplyUpdate(ctx context.Context, q Querier, id int64, assigneeID *int64, status domain.TicketStatus, now time.Time) error
}

type ticketRepository struct{}

// NewTicketRepository instantiates the Postgres-backed repository.
func NewTicketRepository() TicketRepository {
	return ticketRepository{}
}

const ticketSelectColumns = `
        SELECT t.id, t.ticket_number, t.subject, t.description, t.priority, t.status,
               t.created_by, t.assigned_to, t.created_at, t.updated_at,
               COALESCE(creator.full_name, ''), assignee.full_name
        FROM tickets t
        LEFT JOIN users creator ON creator.id = t.created_by
        LEFT JOIN users assignee ON assignee.id = t.assigned_to`

func (ticketRepository) Create(ctx context.Context, q Querier, ticket *domain.Ticket) error {
	// The API layer validates too; the store rejects defensively.
	if strings.TrimSpace(ticket.Subject) == "" {
		return apperrors.NewValidationError("subject is required", nil)
	}
	if strings.TrimSpace(ticket.Description) == "" {
		return apperrors.NewValidationError("description is required", nil)
	}
	const query = `
        INSERT INTO tickets (ticket_number, subject, description, priority, status, created_by, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return q.QueryRow(ctx, query,
		ticket.Number,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (ticketRepository) GetByID(ctx context.Context, q Querier, id int64) (*domain.Ticket, error) {
	query := ticketSelectColumns + ` WHERE t.id=$1`
	var ticket domain.Ticket
	if err := scanTicket(q.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByIDForUpdate loads the raw ticket row under a row lock so the closed
// status check is re-validated inside the transaction, not against a stale
// read. Display names are not resolved on this path.
func (ticketRepository) GetByIDForUpdate(ctx context.Context, q Querier, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_number, subject, description, priority, status,
               created_by, assigned_to, created_at, updated_at
        FROM tickets WHERE id=$1
        FOR UPDATE`
	var ticket domain.Ticket
	if err := q.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (ticketRepository) ListByCreator(ctx context.Context, q Querier, creatorID int64) ([]domain.Ticket, error) {
	query := ticketSelectColumns + ` WHERE t.created_by=$1 ORDER BY t.created_at DESC, t.id DESC`
	rows, err := q.Query(ctx, query, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (ticketRepository) ListAll(ctx context.Context, q Querier) ([]domain.Ticket, error) {
	query := ticketSelectColumns + ` ORDER BY t.created_at DESC, t.id DESC`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ApplyUpdate sets assignee and status and bumps updated_at. Subject,
// description, priority and creator are never touched on this path.
func (ticketRepository) ApplyUpdate(ctx context.Context, q Querier, id int64, assigneeID *int64, status domain.TicketStatus, now time.Time) error {
	const query = `
        UPDATE tickets SET assigned_to=$1, status=$2, updated_at=$3
        WHERE id=$4`
	cmd, err := q.Exec(ctx, query, assigneeID, status, now, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CreatorName,
		&ticket.AssigneeName,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
