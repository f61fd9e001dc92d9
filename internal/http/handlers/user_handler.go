package handlers

import (
	"github.com/gofiber/fiber/v2"

	"bargalileo/internal/repos"
)

type UserHandler struct {
	Users *repos.UserRepo
}

// List answers GET /api/users/, the customer directory the terminals search
// locally.
func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.Users.ListActivos()
	if err != nil {
		return apiError(c, "users.list.fail", err)
	}
	return c.JSON(fiber.Map{"users": users})
}
