package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/transfer"
)

// RegisterTransferRoutes wires the money movement endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/transfers/fund", h.Fund)
	r.Post("/transfers/internal", h.Internal)
	r.Post("/transfers/external", h.External)
}
