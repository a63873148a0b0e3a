package cats

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CatHandler struct {
	service *CatService
}

func NewCatHandler(service *CatService) *CatHandler {
	return &CatHandler{service: service}
}

// List handles GET /api/cats
func (h *CatHandler) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(list)
}

// Create handles POST /api/cats
func (h *CatHandler) Create(c *fiber.Ctx) error {
	var req CreateCatRequest
	if err := c.BodyParser(&req); err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid request body")
	}

	cat, err := h.service.Create(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(cat)
}

// Delete handles DELETE /api/admin/cats/:id
func (h *CatHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid cat ID")
	}

	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Cat deleted"})
}

func (h *CatHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCat):
		return respond(c, fiber.StatusBadRequest, strings.TrimPrefix(err.Error(), ErrInvalidCat.Error()+": "))
	case errors.Is(err, ErrCatNotFound):
		return respond(c, fiber.StatusNotFound, "Cat not found")
	}
	slog.ErrorContext(c.UserContext(), "cats request failed", "path", c.Path(), "error", err.Error())
	return respond(c, fiber.StatusInternalServerError, "Internal server error")
}

func respond(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(dto.NewErrorResponse(status, msg, c.Path()))
}
