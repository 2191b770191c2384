package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/linking"
)

func chaseCheckingMeta() linking.InstitutionMetadata {
	return linking.InstitutionMetadata{
		InstitutionID:   "ins_chase",
		InstitutionName: "Chase",
		AccountID:       "acc-ext-1",
		AccountName:     "Checking •••1234",
	}
}

func TestAccountLinkCoordinatorRequestLinkToken(t *testing.T) {
	provider := &linking.MockProvider{
		LinkTokenValue: linking.LinkToken{Token: "lt-1", ExpiresAt: time.Now().UTC().Add(30 * time.Minute)},
	}
	coord := NewAccountLinkCoordinator(zap.NewNop(), provider, &mockBankRepo{})

	user := domain.User{ID: "u1", Email: "user@example.com"}
	token, err := coord.RequestLinkToken(context.Background(), user)
	if err != nil {
		t.Fatalf("expected link token, got %v", err)
	}
	if token.Token != "lt-1" {
		t.Fatalf("expected provider token, got %q", token.Token)
	}

	pending, ok := coord.PendingLinkToken("u1")
	if !ok || pending.Token != "lt-1" {
		t.Fatalf("expected pending token tracked")
	}
}

func TestAccountLinkCoordinatorRequestLinkToken_ReplacesPrior(t *testing.T) {
	provider := &linking.MockProvider{
		LinkTokenValue: linking.LinkToken{Token: "lt-1", ExpiresAt: time.Now().UTC().Add(30 * time.Minute)},
	}
	coord := NewAccountLinkCoordinator(zap.NewNop(), provider, &mockBankRepo{})
	user := domain.User{ID: "u1"}

	if _, err := coord.RequestLinkToken(context.Background(), user); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	provider.LinkTokenValue.Token = "lt-2"
	if _, err := coord.RequestLinkToken(context.Background(), user); err != nil {
		t.Fatalf("second request failed: %v", err)
	}

	pending, ok := coord.PendingLinkToken("u1")
	if !ok || pending.Token != "lt-2" {
		t.Fatalf("expected newest token to replace the prior one, got %+v", pending)
	}
}

func TestAccountLinkCoordinatorExchange_Success(t *testing.T) {
	provider := &linking.MockProvider{AccessToken: "access-durable"}
	banks := &mockBankRepo{}
	coord := NewAccountLinkCoordinator(zap.NewNop(), provider, banks)
	user := domain.User{ID: "u1", Email: "user@example.com"}

	if _, err := coord.RequestLinkToken(context.Background(), user); err != nil {
		t.Fatalf("request link token failed: %v", err)
	}

	handle, err := coord.ExchangePublicToken(context.Background(), user, "public-1", chaseCheckingMeta())
	if err != nil {
		t.Fatalf("expected exchange success, got %v", err)
	}
	if handle.BankID == "" || handle.InstitutionName != "Chase" || handle.AccountName != "Checking •••1234" {
		t.Fatalf("unexpected handle %+v", handle)
	}

	if len(banks.banks) != 1 {
		t.Fatalf("expected one linked bank stored, got %d", len(banks.banks))
	}
	if banks.banks[0].AccessToken != "access-durable" {
		t.Fatalf("expected access token stored in repository")
	}
	if _, ok := coord.PendingLinkToken("u1"); ok {
		t.Fatalf("expected consumed link token to be discarded")
	}
}

func TestAccountLinkCoordinatorExchange_Idempotent(t *testing.T) {
	provider := &linking.MockProvider{AccessToken: "access-durable"}
	banks := &mockBankRepo{}
	coord := NewAccountLinkCoordinator(zap.NewNop(), provider, banks)
	user := domain.User{ID: "u1"}

	first, err := coord.ExchangePublicToken(context.Background(), user, "public-1", chaseCheckingMeta())
	if err != nil {
		t.Fatalf("first exchange failed: %v", err)
	}
	second, err := coord.ExchangePublicToken(context.Background(), user, "public-1", chaseCheckingMeta())
	if err != nil {
		t.Fatalf("second exchange failed: %v", err)
	}

	if first != second {
		t.Fatalf("expected identical handle on repeat exchange: %+v vs %+v", first, second)
	}
	if provider.ExchangeCalls != 1 {
		t.Fatalf("expected one provider-side access token, got %d exchanges", provider.ExchangeCalls)
	}
	if len(banks.banks) != 1 {
		t.Fatalf("expected single linked bank, got %d", len(banks.banks))
	}
}

func TestAccountLinkCoordinatorExchange_RejectionLeavesStateIntact(t *testing.T) {
	provider := &linking.MockProvider{Err: linking.ErrRejected}
	banks := &mockBankRepo{}
	coord := NewAccountLinkCoordinator(zap.NewNop(), provider, banks)
	user := domain.User{ID: "u1"}

	_, err := coord.ExchangePublicToken(context.Background(), user, "public-stale", chaseCheckingMeta())
	if !errors.Is(err, ErrLinkRejected) {
		t.Fatalf("expected ErrLinkRejected, got %v", err)
	}
	if len(banks.banks) != 0 {
		t.Fatalf("failed exchange must not register a bank")
	}

	// El canje puede reintentarse sin re-autenticacion.
	provider.Err = nil
	provider.AccessToken = "access-durable"
	if _, err := coord.ExchangePublicToken(context.Background(), user, "public-fresh", chaseCheckingMeta()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestAccountLinkCoordinatorExchange_EmptyInput(t *testing.T) {
	coord := NewAccountLinkCoordinator(zap.NewNop(), &linking.MockProvider{}, &mockBankRepo{})

	_, err := coord.ExchangePublicToken(context.Background(), domain.User{ID: "u1"}, "  ", chaseCheckingMeta())
	if !errors.Is(err, ErrLinkInvalid) {
		t.Fatalf("expected ErrLinkInvalid, got %v", err)
	}
}
