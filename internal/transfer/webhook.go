package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
)

type webhookRequest struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// Webhook ingests payout provider settlement events. Replays of an already
// settled transfer are acknowledged without re-applying anything, so provider
// retries stay harmless.
func (h *Handler) Webhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Event == "" {
		return fiber.NewError(http.StatusBadRequest, "missing event")
	}

	err := h.service.Reconcile(c.UserContext(), req.Event, req.Data.Reference)
	switch {
	case err == nil:
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "processed"})
	case errors.Is(err, ledger.ErrAlreadySettled):
		return c.Status(http.StatusOK).JSON(fiber.Map{"status": "already processed"})
	case errors.Is(err, ErrMissingReference):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
