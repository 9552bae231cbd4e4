package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/support-desk/internal/api/dto"
	"github.com/helpdeskhq/support-desk/internal/auth"
	"github.com/helpdeskhq/support-desk/internal/domain"
	"github.com/helpdeskhq/support-desk/internal/service"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket and review endpoints available to any signed-in user.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListMine GET /tickets/my-tickets.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListMine(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(ticketResponses(views))
}

// GetMine GET /tickets/my-tickets/:id.
func (h *TicketsHandler) GetMine(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetMine(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(view))
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	view, err := h.service.Create(c.UserContext(), identity, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ticketResponse(view))
}

// Update PUT /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	view, err := h.service.Update(c.UserContext(), identity, c.Params("id"), req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(view))
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Delete(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket, nil, nil, nil, nil))
}

// AddReview POST /tickets/:id/reviews.
func (h *TicketsHandler) AddReview(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	view, err := h.service.AddReview(c.UserContext(), identity, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewReviewResponse(view.Review, view.Author))
}

// UpdateReview PUT /tickets/:id/reviews/:reviewId.
func (h *TicketsHandler) UpdateReview(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	if err := h.service.UpdateReview(c.UserContext(), identity, c.Params("id"), c.Params("reviewId"), req.Text); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Review has been successfully updated."})
}

// RemoveReview DELETE /tickets/:id/reviews/:reviewId.
func (h *TicketsHandler) RemoveReview(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveReview(c.UserContext(), identity, c.Params("id"), c.Params("reviewId")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Review has been successfully removed."})
}

// Categories GET /tickets/categories.
func (h *TicketsHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(domain.TicketCategories())
}

func callerIdentity(c *fiber.Ctx) (domain.Identity, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return identity, nil
}

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	return dto.NewTicketResponse(view.Ticket, view.Owner, view.Assignee, view.ManagingAdmin, view.Authors)
}

func ticketResponses(views []service.TicketView) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]))
	}
	return items
}
