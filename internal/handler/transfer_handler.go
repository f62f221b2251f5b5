package handler

import (
	"go-rental-store/internal/apperror"
	"go-rental-store/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TransferHandler struct {
	transferService service.TransferService
}

func NewTransferHandler(transferService service.TransferService) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

type ReceiveTransferRequest struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

// GET /api/transfers?direction=incoming|outgoing&status=
func (h *TransferHandler) GetTransfers(c *fiber.Ctx) error {
	storeID, err := queryID(c, "store_id")
	if err != nil {
		return err
	}
	transfers, err := h.transferService.ListTransfers(c.UserContext(), caller(c), service.TransferListFilter{
		StoreID:   storeID,
		Direction: c.Query("direction"),
		Status:    c.Query("status"),
		Page:      page(c),
	})
	if err != nil {
		return err
	}
	return list(c, transfers)
}

// GET /api/transfers/:id
func (h *TransferHandler) GetTransfer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	transfer, err := h.transferService.GetTransfer(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, transfer)
}

// RequestTransfer puts a product in transit to another store
// POST /api/transfers/request
func (h *TransferHandler) RequestTransfer(c *fiber.Ctx) error {
	var req service.RequestTransferRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	transfer, err := h.transferService.RequestTransfer(c.UserContext(), caller(c), &req)
	if err != nil {
		return err
	}
	return created(c, "transfer requested successfully", transfer)
}

// ReceiveTransfer moves the product into the destination store
// POST /api/transfers/receive
func (h *TransferHandler) ReceiveTransfer(c *fiber.Ctx) error {
	var req ReceiveTransferRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.TransferID == uuid.Nil {
		return apperror.Validation("transfer_id is required")
	}
	transfer, err := h.transferService.ReceiveTransfer(c.UserContext(), caller(c), req.TransferID)
	if err != nil {
		return err
	}
	return ok(c, transfer)
}

// POST /api/transfers/:id/cancel
func (h *TransferHandler) CancelTransfer(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	transfer, err := h.transferService.CancelTransfer(c.UserContext(), caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, transfer)
}
