package handler

import (
	"go-rental-store/internal/apperror"
	"go-rental-store/internal/middleware"
	"go-rental-store/internal/service"
	"go-rental-store/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WSHandler struct {
	hub  *ws.Hub
	auth middleware.Authenticator
}

func NewWSHandler(hub *ws.Hub, auth middleware.Authenticator) *WSHandler {
	return &WSHandler{hub: hub, auth: auth}
}

// Upgrade authenticates ?token= before switching protocols.
// Browsers cannot set headers on websocket requests, hence the query string.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	token := c.Query("token")
	if token == "" {
		return apperror.Unauthenticated("missing token")
	}
	caller, _, err := h.auth.Authenticate(token, false)
	if err != nil {
		return err
	}
	c.Locals("ws_caller", caller)
	return c.Next()
}

// Serve registers the connection with the hub and keeps reading until the client leaves
// GET /ws
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		caller, _ := c.Locals("ws_caller").(service.Caller)
		if !h.hub.Join(&ws.Client{Conn: c, UserID: caller.UserID, StoreID: caller.StoreID}) {
			return
		}
		defer h.hub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	})
}
