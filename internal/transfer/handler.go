package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
	"github.com/kobo-pay/kobo_pay/internal/payout"
	"github.com/kobo-pay/kobo_pay/internal/wallet"
)

// Handler exposes transfer HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fundRequest struct {
	WalletID string `json:"wallet_id"`
	Amount   int64  `json:"amount"`
}

// Fund credits the authenticated owner's wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, _ := c.Locals("user_id").(string)

	view, err := h.service.Fund(c.UserContext(), req.WalletID, ownerID, req.Amount)
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Wallet funded successfully",
		"wallet":  view,
	})
}

type internalRequest struct {
	ToUserID string `json:"to_user_id"`
	Amount   int64  `json:"amount"`
	TrxPin   string `json:"trx_pin"`
	Note     string `json:"note"`
}

// Internal moves funds to another user's wallet.
func (h *Handler) Internal(c *fiber.Ctx) error {
	var req internalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, _ := c.Locals("user_id").(string)

	result, err := h.service.Internal(c.UserContext(), InternalInput{
		FromOwnerID: ownerID,
		ToOwnerID:   req.ToUserID,
		Amount:      req.Amount,
		TrxPin:      req.TrxPin,
		Note:        req.Note,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Transfer successful",
		"from":    result.From,
		"to":      result.To,
	})
}

type externalRequest struct {
	Amount        int64  `json:"amount"`
	TrxPin        string `json:"trx_pin"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	RecipientName string `json:"recipient_name"`
	Note          string `json:"note"`
}

// External pushes funds to an external bank account.
func (h *Handler) External(c *fiber.Ctx) error {
	var req externalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, _ := c.Locals("user_id").(string)

	trx, err := h.service.External(c.UserContext(), ExternalInput{
		OwnerID:       ownerID,
		Amount:        req.Amount,
		TrxPin:        req.TrxPin,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		RecipientName: req.RecipientName,
		Note:          req.Note,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":   "Transfer successful",
		"reference": trx.Reference,
		"status":    trx.Status,
		"amount":    trx.Amount,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNonPositiveAmount), errors.Is(err, ErrSelfTransfer),
		errors.Is(err, payout.ErrAccountVerification):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, wallet.ErrInvalidPin):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrDuplicateReference):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
