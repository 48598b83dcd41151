package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// RegisterWalletRoutes wires wallet read endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Me)
	r.Get("/wallet/balance", h.Balance)
	r.Get("/wallet/transactions", h.Transactions)
	r.Get("/banks", h.Banks)
}
