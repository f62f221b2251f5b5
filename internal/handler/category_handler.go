package handler

import (
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct {
	categoryService service.CategoryService
}

func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// GET /api/categories
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.categoryService.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return list(c, categories)
}

// GET /api/categories/:id
func (h *CategoryHandler) GetCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	category, err := h.categoryService.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, category)
}

// POST /api/categories
func (h *CategoryHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	category, err := h.categoryService.CreateCategory(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return created(c, "category created successfully", category)
}

// PUT /api/categories/:id
func (h *CategoryHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req service.CategoryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	category, err := h.categoryService.UpdateCategory(c.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ok(c, category)
}

// DELETE /api/categories/:id
func (h *CategoryHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.categoryService.DeleteCategory(c.UserContext(), id); err != nil {
		return err
	}
	return message(c, "category deleted successfully")
}
