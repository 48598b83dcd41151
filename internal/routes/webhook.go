package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/transfer"
)

// RegisterWebhookRoutes wires the payout provider callback. The endpoint is
// public: provider retries carry no auth and are made safe by settlement
// status checks, not by tokens.
func RegisterWebhookRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/webhooks/paystack", h.Webhook)
}
