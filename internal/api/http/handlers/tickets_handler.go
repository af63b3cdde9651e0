package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticket-system/internal/api/dto"
	"github.com/supportdesk/ticket-system/internal/auth"
	"github.com/supportdesk/ticket-system/internal/domain"
	"github.com/supportdesk/ticket-system/internal/service"
	apperrors "github.com/supportdesk/ticket-system/pkg/util"
)

// TicketsHandler manages ticket endpoints. The handler resolves the acting
// user from the authenticated principal and hands plain ids to the service;
// the service trusts them.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Subject) == "" {
		return apperrors.NewValidationError("subject is required", nil)
	}
	if strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("description is required", nil)
	}
	priority, err := domain.ParseTicketPriority(req.Priority)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), service.CreateTicketInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    priority,
		CreatorID:   principal.ID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Ticket created successfully",
		"data":    dto.FromTicket(ticket),
	})
}

// ListByUser GET /api/tickets/user/:userId.
func (h *TicketsHandler) ListByUser(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid user id", nil)
	}
	tickets, err := h.service.ListUserTickets(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Tickets retrieved successfully",
		"data":    dto.FromTickets(tickets),
	})
}

// ListAll GET /api/tickets/all. Guarded by the admin middleware; the
// service itself does not enforce the privilege.
func (h *TicketsHandler) ListAll(c *fiber.Ctx) error {
	tickets, err := h.service.ListAllTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "All tickets retrieved successfully",
		"data":    dto.FromTickets(tickets),
	})
}

// GetDetails GET /api/tickets/:id.
func (h *TicketsHandler) GetDetails(c *fiber.Ctx) error {
	ticketID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid ticket id", nil)
	}
	details, err := h.service.GetTicketDetails(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Ticket details retrieved successfully",
		"data":    dto.FromTicketDetails(details),
	})
}

// Update PUT /api/tickets.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.TicketID == 0 {
		return apperrors.NewValidationError("ticket_id is required", nil)
	}

	input := service.UpdateTicketInput{
		TicketID:   req.TicketID,
		AssigneeID: req.AssignedTo,
		ActorID:    principal.ID,
		Comment:    req.Comment,
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status, err := domain.ParseTicketStatus(*req.Status)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}
		input.Status = &status
	}

	if err := h.service.UpdateTicket(c.UserContext(), input); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Ticket updated successfully",
		"data":    true,
	})
}

// AddComment POST /api/tickets/comment.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.CommentText) == "" {
		return apperrors.NewValidationError("comment text is required", nil)
	}

	err := h.service.AddComment(c.UserContext(), service.AddCommentInput{
		TicketID: req.TicketID,
		Body:     req.CommentText,
		AuthorID: principal.ID,
		Internal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Comment added successfully",
		"data":    true,
	})
}
