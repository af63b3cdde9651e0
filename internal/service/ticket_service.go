package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-system/internal/domain"
	"github.com/supportdesk/ticket-system/internal/events"
	"github.com/supportdesk/ticket-system/internal/persistence"
	"github.com/supportdesk/ticket-system/internal/repository"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// TicketService coordinates ticket lifecycle workflows. An update runs as a
// single unit of work spanning the ticket row, the status history ledger and
// the comment thread; either all three land or none do. AddComment is the
// deliberate exception: it appends directly without the closed-ticket check,
// matching the system this one models.
type TicketService struct {
	db       repository.Querier
	tx       repository.TxManager
	tickets  repository.TicketRepository
	history  repository.HistoryRepository
	comments repository.CommentRepository
	numbers  repository.TicketNumberGenerator
	cache    *persistence.TicketCache
	dispatch events.Dispatcher
	logger   *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	DB          repository.Querier
	Tx          repository.TxManager
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.HistoryRepository
	CommentRepo repository.CommentRepository
	Numbers     repository.TicketNumberGenerator
	Cache       *persistence.TicketCache
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		db:       deps.DB,
		tx:       deps.Tx,
		tickets:  deps.TicketRepo,
		history:  deps.HistoryRepo,
		comments: deps.CommentRepo,
		numbers:  deps.Numbers,
		cache:    deps.Cache,
		dispatch: deps.Dispatcher,
		logger:   logger,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
	CreatorID   int64
}

// UpdateTicketInput describes a lifecycle update. Nil fields are left
// untouched; a nil Status keeps the current status.
type UpdateTicketInput struct {
	TicketID   int64
	AssigneeID *int64
	Status     *domain.TicketStatus
	ActorID    int64
	Comment    string
}

// AddCommentInput describes a direct comment append.
type AddCommentInput struct {
	TicketID int64
	Body     string
	AuthorID int64
	Internal bool
}

// TicketDetails is the denormalized read view of one ticket.
type TicketDetails struct {
	Ticket   domain.Ticket
	History  []domain.StatusHistoryEntry
	Comments []domain.Comment
}

const creationHistoryComment = "Ticket created"

// CreateTicket allocates a ticket number and inserts the ticket in one unit
// of work, then records the initial null->OPEN history entry as a second
// step. If that second step fails the created ticket still exists; the
// failure is surfaced to the caller.
func (s *TicketService) CreateTicket(ctx context.Context, input CreateTicketInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}

	uow, err := s.tx.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	number, err := s.numbers.Next(ctx, uow)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	ticket := &domain.Ticket{
		Number:      number,
		Subject:     subject,
		Description: description,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   input.CreatorID,
	}
	if err := s.tickets.Create(ctx, uow, ticket); err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	comment := creationHistoryComment
	entry := &domain.StatusHistoryEntry{
		TicketID:  ticket.ID,
		OldStatus: nil,
		NewStatus: domain.TicketStatusOpen,
		ActorID:   input.CreatorID,
		Comment:   &comment,
	}
	if err := s.history.Append(ctx, s.db, entry); err != nil {
		s.logger.Warn("ticket created but initial history entry failed",
			zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  input.CreatorID,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.Number,
			Subject:      ticket.Subject,
			Priority:     ticket.Priority,
		},
	})

	full, err := s.tickets.GetByID(ctx, s.db, ticket.ID)
	if err != nil {
		return ticket, nil
	}
	return full, nil
}

// UpdateTicket applies a lifecycle update atomically. A ticket whose current
// status is CLOSED rejects every update unless the requested status is
// explicitly CLOSED again; the check runs against a row-locked read inside
// the transaction.
func (s *TicketService) UpdateTicket(ctx context.Context, input UpdateTicketInput) error {
	if input.Status != nil && !input.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": string(*input.Status)})
	}

	uow, err := s.tx.Begin(ctx)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	ticket, err := s.tickets.GetByIDForUpdate(ctx, uow, input.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": input.TicketID})
		}
		return apperrors.NewPersistenceError(err)
	}

	if ticket.Status == domain.TicketStatusClosed {
		if input.Status == nil || *input.Status != domain.TicketStatusClosed {
			return apperrors.NewTransitionRejected("ticket is closed and cannot be modified",
				map[string]any{"ticket_id": ticket.ID})
		}
	}

	newStatus := ticket.Status
	if input.Status != nil {
		newStatus = *input.Status
	}
	now := time.Now().UTC()

	if err := s.tickets.ApplyUpdate(ctx, uow, ticket.ID, input.AssigneeID, newStatus, now); err != nil {
		return apperrors.NewPersistenceError(err)
	}

	statusChanged := newStatus != ticket.Status
	comment := strings.TrimSpace(input.Comment)

	if statusChanged {
		oldStatus := ticket.Status
		entry := &domain.StatusHistoryEntry{
			TicketID:  ticket.ID,
			OldStatus: &oldStatus,
			NewStatus: newStatus,
			ActorID:   input.ActorID,
		}
		if comment != "" {
			entry.Comment = &comment
		}
		if err := s.history.Append(ctx, uow, entry); err != nil {
			return err
		}
	}

	if comment != "" {
		record := &domain.Comment{
			TicketID: ticket.ID,
			Body:     comment,
			AuthorID: input.ActorID,
			Internal: true,
		}
		if err := s.comments.Append(ctx, uow, record); err != nil {
			return err
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return apperrors.NewPersistenceError(err)
	}

	s.cache.Invalidate(ctx, ticket.ID)

	if statusChanged {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			ActorID:  input.ActorID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: ticket.Status,
				NewStatus: newStatus,
				Comment:   comment,
			},
		})
	}
	return nil
}

// AddComment appends to the comment thread directly. There is no
// closed-ticket check on this path: closed tickets still accept comments,
// as in the original system.
func (s *TicketService) AddComment(ctx context.Context, input AddCommentInput) error {
	comment := &domain.Comment{
		TicketID: input.TicketID,
		Body:     input.Body,
		AuthorID: input.AuthorID,
		Internal: input.Internal,
	}
	if err := s.comments.Append(ctx, s.db, comment); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, input.TicketID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: input.TicketID,
		ActorID:  input.AuthorID,
		Payload: events.TicketCommentAddedPayload{
			CommentID: comment.ID,
			Internal:  comment.Internal,
		},
	})
	return nil
}

// GetTicketDetails returns a ticket with its history and comment thread,
// newest first, serving from the cache when possible.
func (s *TicketService) GetTicketDetails(ctx context.Context, ticketID int64) (*TicketDetails, error) {
	if payload, ok := s.cache.Get(ctx, ticketID); ok {
		var details TicketDetails
		if err := json.Unmarshal(payload, &details); err == nil {
			return &details, nil
		}
		s.cache.Invalidate(ctx, ticketID)
	}

	ticket, err := s.tickets.GetByID(ctx, s.db, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	history, err := s.history.ListByTicket(ctx, s.db, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	comments, err := s.comments.ListByTicket(ctx, s.db, ticketID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	details := &TicketDetails{Ticket: *ticket, History: history, Comments: comments}
	if payload, err := json.Marshal(details); err == nil {
		s.cache.Set(ctx, ticketID, payload)
	}
	return details, nil
}

// ListUserTickets returns tickets created by a user, newest first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByCreator(ctx, s.db, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

// ListAllTickets returns every ticket, newest first. Privilege enforcement
// is the transport layer's job.
func (s *TicketService) ListAllTickets(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListAll(ctx, s.db)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return tickets, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatch == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatch.Publish(ctx, event)
}
