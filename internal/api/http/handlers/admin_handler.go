package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/dto"
	"github.com/spec-kit/ticket-workflow/internal/observability"
	"github.com/spec-kit/ticket-workflow/internal/service"
)

// AdminHandler exposes data-quality reports and counters.
type AdminHandler struct {
	maintenance *service.MaintenanceService
	metrics     *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(maintenance *service.MaintenanceService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{maintenance: maintenance, metrics: metrics}
}

// InconsistentTickets GET /admin/tickets/inconsistent.
func (h *AdminHandler) InconsistentTickets(c *fiber.Ctx) error {
	limit, err := queryInt64(c, "limit", 100)
	if err != nil {
		return err
	}
	items, err := h.maintenance.InconsistentTickets(c.UserContext(), int(limit))
	if err != nil {
		return err
	}
	resp := make([]dto.InconsistentTicketResponse, 0, len(items))
	for _, item := range items {
		issues := make([]string, 0, len(item.Issues))
		for _, issue := range item.Issues {
			issues = append(issues, string(issue))
		}
		resp = append(resp, dto.InconsistentTicketResponse{
			ID:       item.Ticket.ID,
			Title:    item.Ticket.Title,
			StatusID: item.Ticket.StatusID,
			TypeID:   item.Ticket.TypeID,
			RoleID:   item.Ticket.RoleID,
			Issues:   issues,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Metrics GET /metrics.
func (h *AdminHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
