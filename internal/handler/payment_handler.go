package handler

import (
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePayment registers a payment and settles the installment when given
// POST /api/payments
func (h *PaymentHandler) CreatePayment(c *fiber.Ctx) error {
	var req service.CreatePaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	payment, err := h.paymentService.CreatePayment(c.UserContext(), caller(c), &req)
	if err != nil {
		return err
	}
	return created(c, "payment registered successfully", payment)
}

// GET /api/payments/rental/:rentalId
func (h *PaymentHandler) GetRentalPayments(c *fiber.Ctx) error {
	rentalID, err := paramID(c, "rentalId")
	if err != nil {
		return err
	}
	payments, err := h.paymentService.ListPaymentsByRental(c.UserContext(), caller(c), rentalID)
	if err != nil {
		return err
	}
	return list(c, payments)
}
