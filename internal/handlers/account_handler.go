package handlers

import (
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/account-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.accounts.SignUp(c.UserContext(), req)
	if err != nil {
		return RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.UserMessageResponse{
		Message: "User registered successfully",
		User:    dto.NewUserResponse(user),
	})
}

func (h *AccountHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	token, err := h.accounts.Login(c.UserContext(), req)
	if err != nil {
		return RespondError(c, err)
	}

	return c.JSON(dto.LoginResponse{AccessToken: token})
}

func (h *AccountHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	user, err := h.accounts.GetProfile(c.UserContext(), userID)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.accounts.UpdateProfile(c.UserContext(), userID, req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

func (h *AccountHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.accounts.ChangePassword(c.UserContext(), userID, req); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Password changed successfully"})
}

func (h *AccountHandler) ChangeEmail(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req dto.ChangeEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.accounts.ChangeEmail(c.UserContext(), userID, req)
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.UserMessageResponse{
		Message: "Email changed successfully. Please verify your new email address",
		User:    dto.NewUserResponse(user),
	})
}

func (h *AccountHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.accounts.ForgotPassword(c.UserContext(), req); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: services.ForgotPasswordMessage})
}

func (h *AccountHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.accounts.ResetPassword(c.UserContext(), req); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Password has been reset successfully"})
}

func (h *AccountHandler) Deactivate(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	if _, err := h.accounts.DeactivateAccount(c.UserContext(), userID); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Account deactivated successfully"})
}

func (h *AccountHandler) Reactivate(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	if _, err := h.accounts.ReactivateAccount(c.UserContext(), userID); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Account reactivated successfully"})
}

func (h *AccountHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.accounts.DeleteAccount(c.UserContext(), userID); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Account deleted successfully"})
}

func (h *AccountHandler) VerifyEmail(c *fiber.Ctx) error {
	if err := h.accounts.VerifyEmail(c.UserContext(), c.Params("token")); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Email verified successfully"})
}

func (h *AccountHandler) ResendVerification(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.accounts.ResendVerificationEmail(c.UserContext(), userID); err != nil {
		return RespondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Verification email sent"})
}

func currentUserID(c *fiber.Ctx) (string, bool) {
	claims, ok := middleware.Claims(c)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
