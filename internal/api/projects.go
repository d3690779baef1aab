package api

import (
	"strconv"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/accounting"
	"github.com/api-sentinel/sentinel-gateway/internal/services/middleware"
	"github.com/api-sentinel/sentinel-gateway/internal/services/projects"

	"github.com/gofiber/fiber/v2"
)

// ProjectsHandler handles project CRUD and per-project stats for
// authenticated dashboard users.
type ProjectsHandler struct {
	projectsService   *projects.Service
	accountingService *accounting.Service
}

func NewProjectsHandler(projectsService *projects.Service, accountingService *accounting.Service) *ProjectsHandler {
	return &ProjectsHandler{
		projectsService:   projectsService,
		accountingService: accountingService,
	}
}

func (h *ProjectsHandler) CreateProject(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.ProjectCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	project, err := h.projectsService.Create(c.Context(), user.ID, req.Name)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (h *ProjectsHandler) ListProjects(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	list, err := h.projectsService.ListByOwner(c.Context(), user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(list)
}

func (h *ProjectsHandler) DeleteProject(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	projectID, err := parseProjectID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.projectsService.Delete(c.Context(), projectID, user.ID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Project and all associated data deleted successfully",
	})
}

// GetProjectStats reports the current billing month's spend against the
// project's key budget.
func (h *ProjectsHandler) GetProjectStats(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	projectID, err := parseProjectID(c)
	if err != nil {
		return respondError(c, err)
	}

	stats, err := h.accountingService.GetProjectStats(c.Context(), projectID, user.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}

func parseProjectID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, models.NewValidationError("invalid project id", err)
	}
	return uint(id), nil
}
