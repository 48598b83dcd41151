package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kobo-pay/kobo_pay/internal/payout"
)

const (
	pathListBanks       = "/bank"
	pathResolveAccount  = "/bank/resolve"
	pathCreateRecipient = "/transferrecipient"
	pathTransfer        = "/transfer"
)

// Client talks to the Paystack transfer API and implements payout.Gateway.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewClient builds a Paystack client. Every request is bounded by timeout.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// envelope is the common Paystack response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// VerifyAccount resolves the destination account name via bank/resolve.
func (c *Client) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (payout.BankAccount, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var data struct {
		AccountName   string `json:"account_name"`
		AccountNumber string `json:"account_number"`
	}
	if err := c.do(ctx, http.MethodGet, pathResolveAccount+"?"+q.Encode(), nil, &data); err != nil {
		return payout.BankAccount{}, fmt.Errorf("%w: %v", payout.ErrAccountVerification, err)
	}

	return payout.BankAccount{AccountName: data.AccountName, AccountNumber: data.AccountNumber}, nil
}

// CreateRecipient registers a nuban transfer recipient.
func (c *Client) CreateRecipient(ctx context.Context, input payout.RecipientInput) (payout.Recipient, error) {
	currency := input.Currency
	if currency == "" {
		currency = "NGN"
	}
	body := map[string]any{
		"type":           "nuban",
		"name":           input.Name,
		"bank_code":      input.BankCode,
		"account_number": input.AccountNumber,
		"currency":       currency,
	}

	var data map[string]any
	if err := c.do(ctx, http.MethodPost, pathCreateRecipient, body, &data); err != nil {
		return payout.Recipient{}, fmt.Errorf("create transfer recipient: %w", err)
	}

	code, _ := data["recipient_code"].(string)
	if code == "" {
		return payout.Recipient{}, fmt.Errorf("create transfer recipient: missing recipient_code")
	}

	return payout.Recipient{Code: code, Raw: data}, nil
}

// InitiateTransfer starts a payout from the integration balance. The amount is
// already in minor units, as Paystack expects.
func (c *Client) InitiateTransfer(ctx context.Context, amount int64, recipientCode, reason string) (payout.Transfer, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    amount,
		"recipient": recipientCode,
		"reason":    reason,
	}

	var data map[string]any
	if err := c.do(ctx, http.MethodPost, pathTransfer, body, &data); err != nil {
		return payout.Transfer{}, fmt.Errorf("initiate transfer: %w", err)
	}

	reference, _ := data["reference"].(string)
	if reference == "" {
		return payout.Transfer{}, fmt.Errorf("initiate transfer: missing reference")
	}
	status, _ := data["status"].(string)

	return payout.Transfer{Reference: reference, Status: status, Raw: data}, nil
}

// ListBanks fetches the bank catalog.
func (c *Client) ListBanks(ctx context.Context) ([]payout.Bank, error) {
	var banks []payout.Bank
	if err := c.do(ctx, http.MethodGet, pathListBanks, nil, &banks); err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}
	return banks, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (%d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		return fmt.Errorf("paystack: %s (%d)", env.Message, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}

	return nil
}
