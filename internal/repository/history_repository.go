package repository

import (
	"context"

	"github.com/supportdesk/ticket-system/internal/domain"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// HistoryRepository stores the append-only audit trail of status
// transitions. Entries are never mutated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, q Querier, entry *domain.StatusHistoryEntry) error
	ListByTicket(ctx context.Context, q Querier, ticketID int64) ([]domain.StatusHistoryEntry, error)
}

type historyRepository struct{}

// NewHistoryRepository builds the repository.
func NewHistoryRepository() HistoryRepository {
	return historyRepository{}
}

func (historyRepository) Append(ctx context.Context, q Querier, entry *domain.StatusHistoryEntry) error {
	if entry.NewStatus == "" {
		return apperrors.NewValidationError("new status is required", nil)
	}
	const query = `
        INSERT INTO ticket_status_history (ticket_id, old_status, new_status, changed_by, comment)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		entry.TicketID,
		entry.OldStatus,
		entry.NewStatus,
		entry.ActorID,
		entry.Comment,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByTicket returns entries newest first; timestamp ties are broken by
// insertion order.
func (historyRepository) ListByTicket(ctx context.Context, q Querier, ticketID int64) ([]domain.StatusHistoryEntry, error) {
	const query = `
        SELECT h.id, h.ticket_id, h.old_status, h.new_status, h.changed_by, h.comment, h.created_at,
               COALESCE(u.full_name, '')
        FROM ticket_status_history h
        LEFT JOIN users u ON u.id = h.changed_by
        WHERE h.ticket_id=$1
        ORDER BY h.created_at DESC, h.id DESC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistoryEntry
	for rows.Next() {
		var entry domain.StatusHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.ActorID,
			&entry.Comment,
			&entry.CreatedAt,
			&entry.ActorName,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
