package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kobo-pay/kobo_pay/internal/payout"
)

func TestVerifyAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank/resolve" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("account_number"); got != "0123456789" {
			t.Errorf("unexpected account_number %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Account number resolved",
			"data":    map[string]any{"account_name": "ADA OBI", "account_number": "0123456789"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", time.Second)
	account, err := client.VerifyAccount(context.Background(), "0123456789", "058")
	if err != nil {
		t.Fatalf("verify account: %v", err)
	}
	if account.AccountName != "ADA OBI" {
		t.Fatalf("unexpected account name %q", account.AccountName)
	}
}

func TestVerifyAccountRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Could not resolve account name",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", time.Second)
	_, err := client.VerifyAccount(context.Background(), "0000000000", "058")
	if !errors.Is(err, payout.ErrAccountVerification) {
		t.Fatalf("expected account verification error, got %v", err)
	}
}

func TestInitiateTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transfer" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["source"] != "balance" {
			t.Errorf("expected source balance, got %v", body["source"])
		}
		if body["recipient"] != "RCP_abc" {
			t.Errorf("unexpected recipient %v", body["recipient"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":  true,
			"message": "Transfer has been queued",
			"data": map[string]any{
				"reference":     "ps_ref_1",
				"status":        "pending",
				"transfer_code": "TRF_x",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", time.Second)
	transfer, err := client.InitiateTransfer(context.Background(), 1000, "RCP_abc", "rent")
	if err != nil {
		t.Fatalf("initiate transfer: %v", err)
	}
	if transfer.Reference != "ps_ref_1" {
		t.Fatalf("unexpected reference %q", transfer.Reference)
	}
	if transfer.Status != "pending" {
		t.Fatalf("unexpected status %q", transfer.Status)
	}
}

func TestCreateRecipientMissingCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": true, "data": map[string]any{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", time.Second)
	if _, err := client.CreateRecipient(context.Background(), payout.RecipientInput{
		Name: "Ada Obi", BankCode: "058", AccountNumber: "0123456789",
	}); err == nil {
		t.Fatal("expected error for missing recipient_code")
	}
}

func TestListBanks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": []map[string]any{
				{"name": "Guaranty Trust Bank", "code": "058", "currency": "NGN", "country": "Nigeria"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test", time.Second)
	banks, err := client.ListBanks(context.Background())
	if err != nil {
		t.Fatalf("list banks: %v", err)
	}
	if len(banks) != 1 || banks[0].Code != "058" {
		t.Fatalf("unexpected banks: %+v", banks)
	}
}
