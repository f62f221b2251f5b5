package handler

import (
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// GET /api/customers?search=
func (h *CustomerHandler) GetCustomers(c *fiber.Ctx) error {
	customers, err := h.customerService.SearchCustomers(c.UserContext(), c.Query("search"), page(c))
	if err != nil {
		return err
	}
	return list(c, customers)
}

// GET /api/customers/:id
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	customer, err := h.customerService.GetCustomer(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, customer)
}

// POST /api/customers
func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	var req service.CustomerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	customer, err := h.customerService.CreateCustomer(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return created(c, "customer created successfully", customer)
}

// UpdateCustomer replaces addresses and contacts only when those arrays are sent
// PUT /api/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req service.UpdateCustomerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	customer, err := h.customerService.UpdateCustomer(c.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ok(c, customer)
}

// DELETE /api/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.customerService.DeleteCustomer(c.UserContext(), id); err != nil {
		return err
	}
	return message(c, "customer deleted successfully")
}

// DELETE /api/customers/:id/hard
func (h *CustomerHandler) HardDeleteCustomer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.customerService.HardDeleteCustomer(c.UserContext(), id); err != nil {
		return err
	}
	return message(c, "customer permanently removed")
}
