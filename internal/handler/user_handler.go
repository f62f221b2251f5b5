package handler

import (
	"mime/multipart"

	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUsers lists users, optionally of one store
// GET /api/users
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	storeID, err := queryID(c, "store_id")
	if err != nil {
		return err
	}
	users, err := h.userService.GetAllUsers(c.UserContext(), storeID)
	if err != nil {
		return err
	}
	return list(c, users)
}

// CreateUser handles user creation
// POST /api/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.userService.CreateUser(c.UserContext(), caller(c), &req)
	if err != nil {
		return err
	}
	return created(c, "user created successfully", user)
}

// GetUser returns a single user
// GET /api/users/:id
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.GetUserByID(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// UpdateUser handles user update
// PUT /api/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.userService.UpdateUser(c.UserContext(), caller(c), id, &req)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// DeleteUser soft deletes a user
// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.userService.DeleteUser(c.UserContext(), caller(c), id); err != nil {
		return err
	}
	return message(c, "user deleted successfully")
}

// GET /api/users/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.userService.GetMe(c.UserContext(), caller(c))
	if err != nil {
		return err
	}
	return ok(c, user)
}

// PUT /api/users/me
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var req service.UpdateMeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.userService.UpdateMe(c.UserContext(), caller(c), &req)
	if err != nil {
		return err
	}
	return ok(c, user)
}

// UpdateAvatar stores the multipart "avatar" image
// PATCH /api/users/avatar
func (h *UserHandler) UpdateAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return errFileMissing
	}
	uploads, closeAll, err := openUploads([]*multipart.FileHeader{fh})
	if err != nil {
		return err
	}
	defer closeAll()

	user, err := h.userService.UpdateAvatar(c.UserContext(), caller(c), uploads[0])
	if err != nil {
		return err
	}
	return ok(c, user)
}
