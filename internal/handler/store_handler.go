package handler

import (
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StoreHandler struct {
	storeService service.StoreService
}

func NewStoreHandler(storeService service.StoreService) *StoreHandler {
	return &StoreHandler{storeService: storeService}
}

// GET /api/stores
func (h *StoreHandler) GetStores(c *fiber.Ctx) error {
	stores, err := h.storeService.ListStores(c.UserContext())
	if err != nil {
		return err
	}
	return list(c, stores)
}

// GET /api/stores/:id
func (h *StoreHandler) GetStore(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	store, err := h.storeService.GetStore(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, store)
}

// POST /api/stores
func (h *StoreHandler) CreateStore(c *fiber.Ctx) error {
	var req service.StoreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	store, err := h.storeService.CreateStore(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return created(c, "store created successfully", store)
}

// PUT /api/stores/:id
func (h *StoreHandler) UpdateStore(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req service.StoreRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	store, err := h.storeService.UpdateStore(c.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ok(c, store)
}
