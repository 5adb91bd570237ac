package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/revenda-next/internal/payment/asaaspay"
)

const testWalletID = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"

func newWalletGateway(t *testing.T, handler http.HandlerFunc) (*WalletService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc := NewWalletService(&asaaspay.Config{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		TimeoutMS: 2000,
	})
	return svc, server
}

func TestValidateWalletActive(t *testing.T) {
	svc, _ := newWalletGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("access_token") != "test-key" {
			t.Errorf("missing access_token header")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     testWalletID,
			"name":   "Seller Wallet",
			"active": true,
		})
	})

	result, err := svc.ValidateWallet(context.Background(), testWalletID)
	if err != nil {
		t.Fatalf("validate wallet failed: %v", err)
	}
	if !result.Active || result.WalletID != testWalletID {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.DisplayName != "Seller Wallet" {
		t.Fatalf("expected display name, got %q", result.DisplayName)
	}
}

func TestValidateWalletRejectsBadFormatWithoutNetworkCall(t *testing.T) {
	var calls int32
	svc, _ := newWalletGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	for _, id := range []string{"", "   ", "not-a-uuid", "12345"} {
		if _, err := svc.ValidateWallet(context.Background(), id); !errors.Is(err, ErrWalletFormatInvalid) {
			t.Fatalf("id %q: expected ErrWalletFormatInvalid, got %v", id, err)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("format failure must not reach the gateway, got %d calls", calls)
	}
}

func TestValidateWalletNotFound(t *testing.T) {
	svc, _ := newWalletGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := svc.ValidateWallet(context.Background(), testWalletID); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestValidateWalletInactive(t *testing.T) {
	svc, _ := newWalletGateway(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     testWalletID,
			"active": false,
		})
	})

	if _, err := svc.ValidateWallet(context.Background(), testWalletID); !errors.Is(err, ErrWalletInactive) {
		t.Fatalf("expected ErrWalletInactive, got %v", err)
	}
}

func TestValidateWalletGatewayErrorIsUnavailable(t *testing.T) {
	svc, _ := newWalletGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := svc.ValidateWallet(context.Background(), testWalletID); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}
