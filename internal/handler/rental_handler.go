package handler

import (
	"context"

	"go-rental-store/internal/model"
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RentalHandler struct {
	rentalService service.RentalService
}

func NewRentalHandler(rentalService service.RentalService) *RentalHandler {
	return &RentalHandler{rentalService: rentalService}
}

// GET /api/rentals
func (h *RentalHandler) GetRentals(c *fiber.Ctx) error {
	storeID, err := queryID(c, "store_id")
	if err != nil {
		return err
	}
	customerID, err := queryID(c, "customer_id")
	if err != nil {
		return err
	}
	rentals, err := h.rentalService.ListRentals(c.UserContext(), caller(c), service.RentalListFilter{
		StoreID:    storeID,
		CustomerID: customerID,
		Status:     c.Query("status"),
		Page:       page(c),
	})
	if err != nil {
		return err
	}
	return list(c, rentals)
}

// GET /api/rentals/:id
func (h *RentalHandler) GetRental(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	rental, err := h.rentalService.GetRentalByID(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, rental)
}

// CreateRental reserves the products and snapshots their prices in one transaction
// POST /api/rentals
func (h *RentalHandler) CreateRental(c *fiber.Ctx) error {
	var req service.CreateRentalRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	rental, err := h.rentalService.CreateRental(c.UserContext(), caller(c), &req)
	if err != nil {
		return err
	}
	return created(c, "rental created successfully", rental)
}

// POST /api/rentals/:id/pickup
func (h *RentalHandler) PickUpRental(c *fiber.Ctx) error {
	return h.transition(c, h.rentalService.PickUpRental)
}

// POST /api/rentals/:id/return
func (h *RentalHandler) ReturnRental(c *fiber.Ctx) error {
	return h.transition(c, h.rentalService.ReturnRental)
}

// POST /api/rentals/:id/cancel
func (h *RentalHandler) CancelRental(c *fiber.Ctx) error {
	return h.transition(c, h.rentalService.CancelRental)
}

func (h *RentalHandler) transition(c *fiber.Ctx, fn func(context.Context, service.Caller, uuid.UUID) (*model.Rental, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	rental, err := fn(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, rental)
}
