package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportdesk/ticket-system/internal/domain"
	"github.com/supportdesk/ticket-system/internal/repository"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// fakeState is the committed backing store shared by the stub repositories.
type fakeState struct {
	tickets       map[int64]domain.Ticket
	history       []domain.StatusHistoryEntry
	comments      []domain.Comment
	nextTicketID  int64
	nextHistoryID int64
	nextCommentID int64
}

func newFakeState() *fakeState {
	return &fakeState{tickets: map[int64]domain.Ticket{}}
}

type stateSnapshot struct {
	tickets  map[int64]domain.Ticket
	history  []domain.StatusHistoryEntry
	comments []domain.Comment
}

func (s *fakeState) snapshot() stateSnapshot {
	tickets := make(map[int64]domain.Ticket, len(s.tickets))
	for id, t := range s.tickets {
		tickets[id] = t
	}
	return stateSnapshot{
		tickets:  tickets,
		history:  append([]domain.StatusHistoryEntry{}, s.history...),
		comments: append([]domain.Comment{}, s.comments...),
	}
}

// fakeUOW buffers writes until Commit; Rollback discards them. Mutating
// repositories stage their writes here so a failed update leaves the
// committed state untouched, mirroring transactional semantics.
type fakeUOW struct {
	state      *fakeState
	staged     []func(*fakeState)
	committed  bool
	rolledBack bool
}

func (u *fakeUOW) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (u *fakeUOW) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("fakeUOW: unexpected raw query")
}

func (u *fakeUOW) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("fakeUOW: unexpected raw query")
}

func (u *fakeUOW) Commit(context.Context) error {
	if u.rolledBack {
		return errors.New("fakeUOW: commit after rollback")
	}
	for _, apply := range u.staged {
		apply(u.state)
	}
	u.staged = nil
	u.committed = true
	return nil
}

func (u *fakeUOW) Rollback(context.Context) error {
	if !u.committed {
		u.staged = nil
		u.rolledBack = true
	}
	return nil
}

type fakeTxManager struct {
	state *fakeState
	uows  []*fakeUOW
}

func (m *fakeTxManager) Begin(context.Context) (repository.UnitOfWork, error) {
	uow := &fakeUOW{state: m.state}
	m.uows = append(m.uows, uow)
	return uow, nil
}

// fakeDB stands in for the pool on direct (non-transactional) paths.
type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("fakeDB: unexpected raw query")
}

func (fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("fakeDB: unexpected raw query")
}

// stage buffers the mutation when running inside a fake unit of work and
// applies it immediately on the direct path.
func stage(q repository.Querier, state *fakeState, apply func(*fakeState)) {
	if uow, ok := q.(*fakeUOW); ok {
		uow.staged = append(uow.staged, apply)
		return
	}
	apply(state)
}

type fakeTicketRepo struct {
	state *fakeState
}

func (r *fakeTicketRepo) Create(_ context.Context, q repository.Querier, ticket *domain.Ticket) error {
	if strings.TrimSpace(ticket.Subject) == "" {
		return apperrors.NewValidationError("subject is required", nil)
	}
	if strings.TrimSpace(ticket.Description) == "" {
		return apperrors.NewValidationError("description is required", nil)
	}
	r.state.nextTicketID++
	ticket.ID = r.state.nextTicketID
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	stored := *ticket
	stage(q, r.state, func(s *fakeState) { s.tickets[stored.ID] = stored })
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, _ repository.Querier, id int64) (*domain.Ticket, error) {
	ticket, ok := r.state.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByIDForUpdate(ctx context.Context, q repository.Querier, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, q, id)
}

func (r *fakeTicketRepo) ListByCreator(_ context.Context, _ repository.Querier, creatorID int64) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range r.state.tickets {
		if t.CreatorID == creatorID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *fakeTicketRepo) ListAll(_ context.Context, _ repository.Querier) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, t := range r.state.tickets {
		result = append(result, t)
	}
	return result, nil
}

func (r *fakeTicketRepo) ApplyUpdate(_ context.Context, q repository.Querier, id int64, assigneeID *int64, status domain.TicketStatus, now time.Time) error {
	if _, ok := r.state.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	stage(q, r.state, func(s *fakeState) {
		ticket := s.tickets[id]
		ticket.AssigneeID = assigneeID
		ticket.Status = status
		ticket.UpdatedAt = now
		s.tickets[id] = ticket
	})
	return nil
}

type fakeHistoryRepo struct {
	state      *fakeState
	failAppend error
}

func (r *fakeHistoryRepo) Append(_ context.Context, q repository.Querier, entry *domain.StatusHistoryEntry) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	if entry.NewStatus == "" {
		return apperrors.NewValidationError("new status is required", nil)
	}
	r.state.nextHistoryID++
	entry.ID = r.state.nextHistoryID
	entry.CreatedAt = time.Now()
	stored := *entry
	stage(q, r.state, func(s *fakeState) { s.history = append(s.history, stored) })
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, _ repository.Querier, ticketID int64) ([]domain.StatusHistoryEntry, error) {
	var result []domain.StatusHistoryEntry
	for i := len(r.state.history) - 1; i >= 0; i-- {
		if r.state.history[i].TicketID == ticketID {
			result = append(result, r.state.history[i])
		}
	}
	return result, nil
}

type fakeCommentRepo struct {
	state      *fakeState
	failAppend error
}

func (r *fakeCommentRepo) Append(_ context.Context, q repository.Querier, comment *domain.Comment) error {
	if r.failAppend != nil {
		return r.failAppend
	}
	if strings.TrimSpace(comment.Body) == "" {
		return apperrors.NewValidationError("comment text is required", nil)
	}
	r.state.nextCommentID++
	comment.ID = r.state.nextCommentID
	comment.CreatedAt = time.Now()
	stored := *comment
	stage(q, r.state, func(s *fakeState) { s.comments = append(s.comments, stored) })
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, _ repository.Querier, ticketID int64) ([]domain.Comment, error) {
	var result []domain.Comment
	for i := len(r.state.comments) - 1; i >= 0; i-- {
		if r.state.comments[i].TicketID == ticketID {
			result = append(result, r.state.comments[i])
		}
	}
	return result, nil
}

// fakeNumberGen mirrors the MAX(suffix)+1 read against the fake store.
type fakeNumberGen struct {
	state *fakeState
}

func (g fakeNumberGen) Next(context.Context, repository.Querier) (string, error) {
	var max int64
	for _, t := range g.state.tickets {
		suffix, err := strconv.ParseInt(strings.TrimPrefix(t.Number, "TKT-"), 10, 64)
		if err == nil && suffix > max {
			max = suffix
		}
	}
	return repository.FormatTicketNumber(max + 1), nil
}

type fixture struct {
	state    *fakeState
	tx       *fakeTxManager
	tickets  *fakeTicketRepo
	history  *fakeHistoryRepo
	comments *fakeCommentRepo
	svc      *TicketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state := newFakeState()
	f := &fixture{
		state:    state,
		tx:       &fakeTxManager{state: state},
		tickets:  &fakeTicketRepo{state: state},
		history:  &fakeHistoryRepo{state: state},
		comments: &fakeCommentRepo{state: state},
	}
	f.svc = NewTicketService(TicketDependencies{
		DB:          fakeDB{},
		Tx:          f.tx,
		TicketRepo:  f.tickets,
		HistoryRepo: f.history,
		CommentRepo: f.comments,
		Numbers:     fakeNumberGen{state: state},
		Logger:      zap.NewNop(),
	})
	return f
}

func (f *fixture) createTicket(t *testing.T, priority domain.TicketPriority, creatorID int64) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		Subject:     "Printer broken",
		Description: "No output",
		Priority:    priority,
		CreatorID:   creatorID,
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) updateStatus(t *testing.T, ticketID int64, status domain.TicketStatus, actorID int64) {
	t.Helper()
	require.NoError(t, f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID: ticketID,
		Status:   &status,
		ActorID:  actorID,
	}))
}

func TestCreateTicket_SequentialNumbers(t *testing.T) {
	f := newFixture(t)

	first := f.createTicket(t, domain.TicketPriorityMedium, 1)
	second := f.createTicket(t, domain.TicketPriorityMedium, 1)
	third := f.createTicket(t, domain.TicketPriorityMedium, 2)

	assert.Equal(t, "TKT-00001", first.Number)
	assert.Equal(t, "TKT-00002", second.Number)
	assert.Equal(t, "TKT-00003", third.Number)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
}

func TestCreateTicket_DefaultsToMediumPriority(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		Subject:     "No sound",
		Description: "Speakers are silent",
		CreatorID:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}

func TestCreateTicket_RecordsCreationHistory(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t, domain.TicketPriorityHigh, 7)

	require.Len(t, f.state.history, 1)
	entry := f.state.history[0]
	assert.Equal(t, ticket.ID, entry.TicketID)
	assert.Nil(t, entry.OldStatus)
	assert.Equal(t, domain.TicketStatusOpen, entry.NewStatus)
	assert.Equal(t, int64(7), entry.ActorID)
	require.NotNil(t, entry.Comment)
	assert.Equal(t, "Ticket created", *entry.Comment)
}

func TestCreateTicket_RejectsEmptyFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		Subject:     "   ",
		Description: "No output",
		CreatorID:   1,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	_, err = f.svc.CreateTicket(context.Background(), CreateTicketInput{
		Subject:     "Printer broken",
		Description: "",
		CreatorID:   1,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))

	assert.Empty(t, f.state.tickets)
	assert.Empty(t, f.state.history)
	assert.Empty(t, f.tx.uows, "validation failures must not open a transaction")
}

func TestUpdateTicket_StatusChangeAppendsOneHistoryEntry(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)

	f.updateStatus(t, ticket.ID, domain.TicketStatusInProgress, 9)

	require.Len(t, f.state.history, 2)
	entry := f.state.history[1]
	require.NotNil(t, entry.OldStatus)
	assert.Equal(t, domain.TicketStatusOpen, *entry.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, entry.NewStatus)
	assert.Equal(t, int64(9), entry.ActorID)
	assert.Equal(t, domain.TicketStatusInProgress, f.state.tickets[ticket.ID].Status)
}

func TestUpdateTicket_AssigneeOnlyAppendsNoHistory(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	assignee := int64(11)

	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID:   ticket.ID,
		AssigneeID: &assignee,
		ActorID:    9,
	})
	require.NoError(t, err)

	require.Len(t, f.state.history, 1, "only the creation entry should exist")
	updated := f.state.tickets[ticket.ID]
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, assignee, *updated.AssigneeID)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
}

func TestUpdateTicket_StatusChangeWithComment(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	status := domain.TicketStatusInProgress

	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID: ticket.ID,
		Status:   &status,
		ActorID:  9,
		Comment:  "taking a look",
	})
	require.NoError(t, err)

	require.Len(t, f.state.history, 2)
	require.Len(t, f.state.comments, 1)

	entry := f.state.history[1]
	comment := f.state.comments[0]
	assert.Equal(t, int64(9), entry.ActorID)
	assert.Equal(t, int64(9), comment.AuthorID)
	assert.True(t, comment.Internal, "update comments are recorded as internal")
	assert.Equal(t, "taking a look", comment.Body)
	require.NotNil(t, entry.Comment)
	assert.Equal(t, "taking a look", *entry.Comment)
	assert.WithinDuration(t, entry.CreatedAt, comment.CreatedAt, time.Second)
}

func TestUpdateTicket_ClosedTicketRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	f.updateStatus(t, ticket.ID, domain.TicketStatusClosed, 9)

	before := f.state.snapshot()

	status := domain.TicketStatusOpen
	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID: ticket.ID,
		Status:   &status,
		ActorID:  9,
		Comment:  "reopening",
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTransitionRejected))

	after := f.state.snapshot()
	assert.Equal(t, before, after, "a rejected update must leave no trace")
}

func TestUpdateTicket_ClosedTicketWithoutStatusRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	f.updateStatus(t, ticket.ID, domain.TicketStatusClosed, 9)

	assignee := int64(11)
	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID:   ticket.ID,
		AssigneeID: &assignee,
		ActorID:    9,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTransitionRejected))
	assert.Nil(t, f.state.tickets[ticket.ID].AssigneeID)
}

func TestUpdateTicket_ClosedToClosedAllowed(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	f.updateStatus(t, ticket.ID, domain.TicketStatusClosed, 9)
	historyCount := len(f.state.history)

	assignee := int64(11)
	status := domain.TicketStatusClosed
	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID:   ticket.ID,
		AssigneeID: &assignee,
		Status:     &status,
		ActorID:    9,
	})
	require.NoError(t, err)

	updated := f.state.tickets[ticket.ID]
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, assignee, *updated.AssigneeID)
	assert.Len(t, f.state.history, historyCount, "closed-to-closed is not a transition")
}

func TestUpdateTicket_NotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{TicketID: 42, ActorID: 1})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestUpdateTicket_CommentFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	f.updateStatus(t, ticket.ID, domain.TicketStatusInProgress, 9)

	before := f.state.snapshot()
	f.comments.failAppend = errors.New("insert failed")

	status := domain.TicketStatusClosed
	err := f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID: ticket.ID,
		Status:   &status,
		ActorID:  9,
		Comment:  "closing out",
	})
	require.Error(t, err)

	after := f.state.snapshot()
	assert.Equal(t, before, after, "ticket mutation and history append must roll back with the failed comment")

	last := f.tx.uows[len(f.tx.uows)-1]
	assert.True(t, last.rolledBack)
	assert.False(t, last.committed)
}

func TestAddComment_ClosedTicketStillAccepts(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)
	f.updateStatus(t, ticket.ID, domain.TicketStatusClosed, 9)

	err := f.svc.AddComment(context.Background(), AddCommentInput{
		TicketID: ticket.ID,
		Body:     "follow-up after closing",
		AuthorID: 3,
		Internal: false,
	})
	require.NoError(t, err)
	require.Len(t, f.state.comments, 1)
	assert.Equal(t, "follow-up after closing", f.state.comments[0].Body)
}

func TestAddComment_EmptyBodyRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, domain.TicketPriorityMedium, 3)

	err := f.svc.AddComment(context.Background(), AddCommentInput{
		TicketID: ticket.ID,
		Body:     "  ",
		AuthorID: 3,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
	assert.Empty(t, f.state.comments)
}

func TestTicketLifecycleScenario(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), CreateTicketInput{
		Subject:     "Printer broken",
		Description: "No output",
		Priority:    domain.TicketPriorityHigh,
		CreatorID:   7,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, "TKT-00001", ticket.Number)

	f.updateStatus(t, ticket.ID, domain.TicketStatusInProgress, 7)
	f.updateStatus(t, ticket.ID, domain.TicketStatusClosed, 7)

	details, err := f.svc.GetTicketDetails(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, details.Ticket.Status)

	require.Len(t, details.History, 3)
	// Newest first: the closing transition leads.
	closing := details.History[0]
	require.NotNil(t, closing.OldStatus)
	assert.Equal(t, domain.TicketStatusInProgress, *closing.OldStatus)
	assert.Equal(t, domain.TicketStatusClosed, closing.NewStatus)
	creation := details.History[2]
	assert.Nil(t, creation.OldStatus)
	assert.Equal(t, domain.TicketStatusOpen, creation.NewStatus)

	reopen := domain.TicketStatusOpen
	err = f.svc.UpdateTicket(context.Background(), UpdateTicketInput{
		TicketID: ticket.ID,
		Status:   &reopen,
		ActorID:  7,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeTransitionRejected))
}

func TestGetTicketDetails_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetTicketDetails(context.Background(), 99)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}
