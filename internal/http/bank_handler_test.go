package http

import (
	"net/http"
	"testing"

	"horizon-bank/internal/linking"
	"horizon-bank/internal/payments"
)

func exchangeBody() map[string]string {
	return map[string]string{
		"public_token":     "public-1",
		"institution_id":   "ins_chase",
		"institution_name": "Chase",
		"account_id":       "acc-ext-1",
		"account_name":     "Checking •••1234",
	}
}

func TestLinkFlowEndToEnd(t *testing.T) {
	stack := setupTestStack()
	token := signUpAndToken(t, stack)

	rec := doJSON(t, stack.router, http.MethodPost, "/link/token", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	linkToken, ok := decodeBody(t, rec)["link_token"].(string)
	if !ok || linkToken == "" {
		t.Fatalf("expected link token in response, got %s", rec.Body.String())
	}

	rec = doJSON(t, stack.router, http.MethodPost, "/link/exchange", token, exchangeBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	linked, ok := decodeBody(t, rec)["linked_account"].(map[string]any)
	if !ok {
		t.Fatalf("expected linked_account payload")
	}
	if linked["institution_name"] != "Chase" || linked["account_name"] != "Checking •••1234" {
		t.Fatalf("unexpected handle %v", linked)
	}
	if _, leaked := linked["access_token"]; leaked {
		t.Fatalf("access token must never cross the coordinator boundary")
	}

	rec = doJSON(t, stack.router, http.MethodGet, "/accounts", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	accounts, ok := decodeBody(t, rec)["accounts"].([]any)
	if !ok || len(accounts) == 0 {
		t.Fatalf("expected linked accounts, got %s", rec.Body.String())
	}
	first := accounts[0].(map[string]any)
	if first["name"] != "Checking •••1234" {
		t.Fatalf("expected Checking •••1234, got %v", first["name"])
	}

	// Tras vincular, /me ya no pide linking.
	rec = doJSON(t, stack.router, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["needs_linking"] != false {
		t.Fatalf("expected needs_linking false after exchange")
	}
}

func TestLinkExchangeRejected(t *testing.T) {
	stack := setupTestStack()
	token := signUpAndToken(t, stack)
	stack.linkProvider.Err = linking.ErrRejected

	rec := doJSON(t, stack.router, http.MethodPost, "/link/exchange", token, exchangeBody())
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(stack.banks.banks) != 0 {
		t.Fatalf("rejected exchange must not register a bank")
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	stack := setupTestStack()
	token := signUpAndToken(t, stack)

	rec := doJSON(t, stack.router, http.MethodPost, "/link/exchange", token, exchangeBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("link failed: %d", rec.Code)
	}

	// Balances 500 y 1000; 1500 excede el disponible de acc1.
	rec = doJSON(t, stack.router, http.MethodPost, "/transfers", token, map[string]string{
		"source_account_id":      "acc1",
		"destination_account_id": "acc2",
		"amount":                 "1500",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if stack.payProvider.SubmitCalls != 0 {
		t.Fatalf("local precondition failure must not reach the payments provider")
	}
}

func TestTransferSuccess(t *testing.T) {
	stack := setupTestStack()
	token := signUpAndToken(t, stack)

	rec := doJSON(t, stack.router, http.MethodPost, "/link/exchange", token, exchangeBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("link failed: %d", rec.Code)
	}

	rec = doJSON(t, stack.router, http.MethodPost, "/transfers", token, map[string]string{
		"source_account_id":      "acc2",
		"destination_account_id": "acc1",
		"amount":                 "250.50",
		"note":                   "rent share",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	transfer, ok := decodeBody(t, rec)["transfer"].(map[string]any)
	if !ok || transfer["transfer_id"] != "tr-1" {
		t.Fatalf("expected provider confirmation, got %s", rec.Body.String())
	}
}

func TestTransferIndeterminateTimeout(t *testing.T) {
	stack := setupTestStack()
	token := signUpAndToken(t, stack)

	rec := doJSON(t, stack.router, http.MethodPost, "/link/exchange", token, exchangeBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("link failed: %d", rec.Code)
	}

	stack.payProvider.Err = payments.ErrTimeout
	rec = doJSON(t, stack.router, http.MethodPost, "/transfers", token, map[string]string{
		"source_account_id":      "acc2",
		"destination_account_id": "acc1",
		"amount":                 "100",
	})
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["status"] != "indeterminate" {
		t.Fatalf("expected indeterminate status distinct from failure, got %s", rec.Body.String())
	}
}

func TestBankRoutesRequireAuth(t *testing.T) {
	stack := setupTestStack()

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/link/token"},
		{http.MethodPost, "/link/exchange"},
		{http.MethodGet, "/accounts"},
		{http.MethodPost, "/transfers"},
	} {
		rec := doJSON(t, stack.router, route.method, route.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, rec.Code)
		}
	}
}
