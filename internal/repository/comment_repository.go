package repository

import (
	"context"
	"strings"

	"github.com/supportdesk/ticket-system/internal/domain"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// CommentRepository manages the append-only ticket comment thread.
type CommentRepository interface {
	Append(ctx context.Context, q Querier, comment *domain.Comment) error
	ListByTicket(ctx context.Context, q Querier, ticketID int64) ([]domain.Comment, error)
}

type commentRepository struct{}

// NewCommentRepository builds the repository.
func NewCommentRepository() CommentRepository {
	return commentRepository{}
}

func (commentRepository) Append(ctx context.Context, q Querier, comment *domain.Comment) error {
	if strings.TrimSpace(comment.Body) == "" {
		return apperrors.NewValidationError("comment text is required", nil)
	}
	const query = `
        INSERT INTO ticket_comments (ticket_id, body, author_id, internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		comment.TicketID,
		comment.Body,
		comment.AuthorID,
		comment.Internal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

// ListByTicket returns comments newest first with author names resolved.
func (commentRepository) ListByTicket(ctx context.Context, q Querier, ticketID int64) ([]domain.Comment, error) {
	const query = `
        SELECT c.id, c.ticket_id, c.body, c.author_id, c.internal, c.created_at,
               COALESCE(u.full_name, '')
        FROM ticket_comments c
        LEFT JOIN users u ON u.id = c.author_id
        WHERE c.ticket_id=$1
        ORDER BY c.created_at DESC, c.id DESC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.Body,
			&comment.AuthorID,
			&comment.Internal,
			&comment.CreatedAt,
			&comment.AuthorName,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
