package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/identity"
)

// RegisterIdentityRoutes wires account registration.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}
