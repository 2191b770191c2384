package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/linking"
	"horizon-bank/internal/repository"
)

var (
	ErrLinkInvalid      = errors.New("invalid link exchange input")
	ErrLinkRejected     = errors.New("link exchange rejected")
	ErrProviderRejected = errors.New("provider rejected request")
)

// AccountLinkCoordinator maneja el ciclo de vida del vinculo bancario:
// emision de link tokens, canje del public token y registro del banco.
// El access token durable nunca sale de este componente ni del repositorio.
type AccountLinkCoordinator struct {
	logger   *zap.Logger
	provider linking.Provider
	banks    repository.BankRepository

	mu      sync.Mutex
	pending map[string]linking.LinkToken
}

func NewAccountLinkCoordinator(logger *zap.Logger, provider linking.Provider, banks repository.BankRepository) *AccountLinkCoordinator {
	return &AccountLinkCoordinator{
		logger:   logger,
		provider: provider,
		banks:    banks,
		pending:  make(map[string]linking.LinkToken),
	}
}

// RequestLinkToken emite un link token nuevo para el usuario. Emitir uno
// nuevo invalida la intencion de usar cualquier token previo.
func (c *AccountLinkCoordinator) RequestLinkToken(ctx context.Context, user domain.User) (linking.LinkToken, error) {
	if c.provider == nil {
		return linking.LinkToken{}, errors.New("link coordinator not configured")
	}

	token, err := c.provider.CreateLinkToken(ctx, user.ID)
	if err != nil {
		if errors.Is(err, linking.ErrRejected) {
			return linking.LinkToken{}, ErrProviderRejected
		}
		c.logger.Error("create link token failed", zap.Error(err), zap.String("user_id", user.ID))
		return linking.LinkToken{}, ErrProviderUnavailable
	}
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = time.Now().UTC().Add(30 * time.Minute)
	}

	c.mu.Lock()
	c.pending[user.ID] = token
	c.mu.Unlock()

	return token, nil
}

// ExchangePublicToken canjea el public token por un access token durable y
// registra el banco vinculado. El canje es idempotente por
// (usuario, institucion, cuenta externa): un vinculo repetido devuelve la
// asociacion existente sin crear un segundo access token.
func (c *AccountLinkCoordinator) ExchangePublicToken(ctx context.Context, user domain.User, publicToken string, meta linking.InstitutionMetadata) (domain.LinkedAccountHandle, error) {
	if c.provider == nil || c.banks == nil {
		return domain.LinkedAccountHandle{}, errors.New("link coordinator not configured")
	}

	publicToken = strings.TrimSpace(publicToken)
	if publicToken == "" || meta.InstitutionID == "" || meta.AccountID == "" {
		return domain.LinkedAccountHandle{}, ErrLinkInvalid
	}

	existing, err := c.banks.GetByExternalAccount(ctx, user.ID, meta.InstitutionID, meta.AccountID)
	if err == nil {
		return handleFor(existing), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		c.logger.Error("linked bank lookup failed", zap.Error(err), zap.String("user_id", user.ID))
		return domain.LinkedAccountHandle{}, ErrProviderUnavailable
	}

	accessToken, err := c.provider.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		// El usuario sigue autenticado con needs-linking intacto; el canje
		// puede reintentarse sin re-autenticacion.
		if errors.Is(err, linking.ErrRejected) {
			return domain.LinkedAccountHandle{}, ErrLinkRejected
		}
		c.logger.Error("public token exchange failed", zap.Error(err), zap.String("user_id", user.ID))
		return domain.LinkedAccountHandle{}, ErrProviderUnavailable
	}

	bank := domain.LinkedBank{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		InstitutionID:     meta.InstitutionID,
		InstitutionName:   meta.InstitutionName,
		ExternalAccountID: meta.AccountID,
		AccountName:       meta.AccountName,
		AccessToken:       accessToken,
		CreatedAt:         time.Now().UTC(),
	}
	if err := c.banks.Create(ctx, bank); err != nil {
		c.logger.Error("linked bank create failed", zap.Error(err), zap.String("user_id", user.ID))
		return domain.LinkedAccountHandle{}, ErrProviderUnavailable
	}

	// El link token consumido es de un solo uso.
	c.mu.Lock()
	delete(c.pending, user.ID)
	c.mu.Unlock()

	return handleFor(bank), nil
}

// PendingLinkToken expone el token vigente, si existe y no expiro.
func (c *AccountLinkCoordinator) PendingLinkToken(userID string) (linking.LinkToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token, ok := c.pending[userID]
	if !ok || time.Now().UTC().After(token.ExpiresAt) {
		return linking.LinkToken{}, false
	}
	return token, true
}

func handleFor(bank domain.LinkedBank) domain.LinkedAccountHandle {
	return domain.LinkedAccountHandle{
		BankID:          bank.ID,
		InstitutionName: bank.InstitutionName,
		AccountName:     bank.AccountName,
	}
}
