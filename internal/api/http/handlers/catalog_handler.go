package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/dto"
	"github.com/spec-kit/ticket-workflow/internal/service"
)

// CatalogHandler serves status and role reference data.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListStatuses GET /statuses.
func (h *CatalogHandler) ListStatuses(c *fiber.Ctx) error {
	statuses, err := h.catalog.ListStatuses(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.StatusResponse, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, dto.StatusResponse{ID: s.ID, Name: s.Name, Color: s.Color})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListRoles GET /roles.
func (h *CatalogHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.catalog.ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RoleResponse, 0, len(roles))
	for _, r := range roles {
		items = append(items, dto.RoleResponse{ID: r.ID, Name: r.Name})
	}
	return c.JSON(fiber.Map{"data": items})
}
