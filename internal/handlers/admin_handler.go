package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler serves the user directory.
type AdminHandler struct {
	accounts *services.AccountService
}

func NewAdminHandler(accounts *services.AccountService) *AdminHandler {
	return &AdminHandler{accounts: accounts}
}

// ListUsers handles GET /api/admin/users?firstName=&gender=&age=&email=&limit=&offset=
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	var q dto.ListUsersQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.NewErrorResponse(fiber.StatusBadRequest, "Invalid query parameters", c.Path()))
	}
	filter, err := q.Filter()
	if err != nil {
		return RespondError(c, services.WrapValidation(err))
	}
	filter.Limit = store.NormalizeLimit(filter.Limit)

	users, total, err := h.accounts.ListUsers(c.UserContext(), filter)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.NewUserListResponse(users, total, filter))
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.accounts.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}
