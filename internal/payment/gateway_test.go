package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stylisthq/stylist-server/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.PaymentConfig{
		ShopID:    "shop-1",
		SecretKey: "secret-1",
		BaseURL:   server.URL,
	})
}

func TestClient_Create(t *testing.T) {
	var gotIdempotence string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "shop-1" || pass != "secret-1" {
			t.Error("missing or wrong basic auth")
		}
		gotIdempotence = r.Header.Get("Idempotence-Key")

		var body createRequest
		if errDecode := json.NewDecoder(r.Body).Decode(&body); errDecode != nil {
			t.Errorf("decode request: %v", errDecode)
		}
		if body.Amount.Value != "499.00" || body.Amount.Currency != "RUB" {
			t.Errorf("unexpected amount %+v", body.Amount)
		}
		if body.Confirmation.Type != "redirect" || body.Confirmation.ReturnURL != "https://app.example/paid" {
			t.Errorf("unexpected confirmation %+v", body.Confirmation)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(paymentResponse{
			ID:     "pay-123",
			Status: "pending",
			Confirmation: &confirmationBody{
				Type: "redirect",
				URL:  "https://gateway.example/confirm/pay-123",
			},
		})
	})

	created, err := client.Create(context.Background(), 49900, "RUB", "https://app.example/paid")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "pay-123" {
		t.Fatalf("unexpected payment id %q", created.ID)
	}
	if created.RedirectURL != "https://gateway.example/confirm/pay-123" {
		t.Fatalf("unexpected redirect url %q", created.RedirectURL)
	}
	if gotIdempotence == "" {
		t.Fatal("expected an Idempotence-Key header")
	}
}

func TestClient_CreateRejectsMissingRedirect(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{ID: "pay-9", Status: "pending"})
	})

	if _, err := client.Create(context.Background(), 100, "RUB", ""); err == nil {
		t.Fatal("expected error for response without confirmation url")
	}
}

func TestClient_Status(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(paymentResponse{ID: "pay-123", Status: "succeeded", Paid: true})
	})

	status, err := client.Status(context.Background(), "pay-123")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Paid {
		t.Fatal("expected paid status")
	}
}

func TestClient_StatusUnpaid(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(paymentResponse{ID: "pay-123", Status: "canceled"})
	})

	status, err := client.Status(context.Background(), "pay-123")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Paid {
		t.Fatal("expected unpaid status")
	}
}

func TestClient_StatusErrorOnBadGateway(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if _, err := client.Status(context.Background(), "pay-123"); err == nil {
		t.Fatal("expected error on gateway failure")
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{49900, "499.00"},
		{100, "1.00"},
		{5, "0.05"},
		{12345, "123.45"},
	}
	for _, tc := range cases {
		if got := formatAmount(tc.cents); got != tc.want {
			t.Errorf("formatAmount(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}
