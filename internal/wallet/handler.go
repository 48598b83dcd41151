package wallet

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	TrxPin   string `json:"trx_pin"`
	Currency string `json:"currency"`
}

// Create provisions a wallet for the authenticated owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, _ := c.Locals("user_id").(string)

	view, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:  ownerID,
		Pin:      req.TrxPin,
		Currency: Currency(req.Currency),
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Wallet created successfully",
		"wallet":  view,
	})
}

// Me returns the authenticated owner's wallet.
func (h *Handler) Me(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	view, err := h.service.Get(c.UserContext(), ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(view)
}

// Balance returns the authenticated owner's balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)
	balance, err := h.service.Balance(c.UserContext(), ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"balance": balance})
}

// Transactions returns the owner's filtered, paginated transaction history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	ownerID, _ := c.Locals("user_id").(string)

	filter := ledger.Filter{
		Type:    ledger.Type(c.Query("type")),
		Status:  ledger.Status(c.Query("status")),
		Channel: ledger.Channel(c.Query("channel")),
	}
	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid limit")
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid offset")
	}
	if filter.Start, err = timeQuery(c, "startDate"); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid startDate")
	}
	if filter.End, err = timeQuery(c, "endDate"); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid endDate")
	}

	page, err := h.service.Transactions(c.UserContext(), ownerID, filter)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = ledger.DefaultLimit
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"data": transactionViews(page.Data),
		"pagination": fiber.Map{
			"limit":  limit,
			"offset": filter.Offset,
			"total":  page.Total,
		},
	})
}

// Banks lists the payout provider's supported banks.
func (h *Handler) Banks(c *fiber.Ctx) error {
	banks, err := h.service.Banks(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(banks)
}

type transactionView struct {
	ID        string         `json:"id"`
	Reference string         `json:"reference"`
	Amount    int64          `json:"amount"`
	Type      ledger.Type    `json:"type"`
	Status    ledger.Status  `json:"status"`
	Channel   ledger.Channel `json:"channel"`
	Charges   any            `json:"trx_charges,omitempty"`
	Note      string         `json:"note,omitempty"`
	WalletID  string         `json:"wallet_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func transactionViews(trxs []ledger.Transaction) []transactionView {
	views := make([]transactionView, 0, len(trxs))
	for _, trx := range trxs {
		view := transactionView{
			ID:        trx.ID,
			Reference: trx.Reference,
			Amount:    trx.Amount,
			Type:      trx.Type,
			Status:    trx.Status,
			Channel:   trx.Channel,
			Note:      trx.Note,
			WalletID:  trx.WalletID,
			Metadata:  trx.Metadata,
			CreatedAt: trx.CreatedAt,
			UpdatedAt: trx.UpdatedAt,
		}
		if trx.Charges != nil {
			view.Charges = *trx.Charges
		}
		views = append(views, view)
	}
	return views
}

func intQuery(c *fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func timeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// Date-only values are accepted too.
		if t, err = time.Parse("2006-01-02", raw); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
