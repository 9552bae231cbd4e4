package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdeskhq/support-desk/internal/api/dto"
	"github.com/helpdeskhq/support-desk/internal/service"
	apperrors "github.com/helpdeskhq/support-desk/pkg/util/errorutil"
)

// AdminTicketsHandler serves the admin-only triage and reporting endpoints.
type AdminTicketsHandler struct {
	tickets *service.TicketService
	reports *service.ReportService
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService, reportService *service.ReportService) *AdminTicketsHandler {
	return &AdminTicketsHandler{tickets: ticketService, reports: reportService}
}

// ListAll GET /tickets/all.
func (h *AdminTicketsHandler) ListAll(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	views, err := h.tickets.ListAll(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(adminTicketResponses(views))
}

// ListAssignedToMe GET /tickets/assigned-to-me.
func (h *AdminTicketsHandler) ListAssignedToMe(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	views, err := h.tickets.ListAssignedToMe(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(adminTicketResponses(views))
}

// Assign PUT /tickets/:id/assign. The body is optional.
func (h *AdminTicketsHandler) Assign(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	view, err := h.tickets.Assign(c.UserContext(), identity, c.Params("id"), req.AssigneeID)
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(view).AsAdminView())
}

// Stats GET /tickets/stats?groupBy=day|week|month.
func (h *AdminTicketsHandler) Stats(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	period, err := service.ParseStatsPeriod(c.Query("groupBy"))
	if err != nil {
		return err
	}
	stats, err := h.reports.Stats(c.UserContext(), identity, period)
	if err != nil {
		return err
	}
	return c.JSON(dto.StatsResponse{GroupBy: period, Labels: stats.Labels, Data: stats.Data})
}

func adminTicketResponses(views []service.TicketView) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(views))
	for i := range views {
		items = append(items, ticketResponse(&views[i]).AsAdminView())
	}
	return items
}
