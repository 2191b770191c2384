package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"horizon-bank/internal/domain"
	"horizon-bank/internal/linking"
	"horizon-bank/internal/repository"
	"horizon-bank/internal/service"
)

// BankHandler mantiene dependencias para los endpoints de banca vinculada.
type BankHandler struct {
	logger      *zap.Logger
	users       repository.UserRepository
	orch        *service.CredentialOrchestrator
	coordinator *service.AccountLinkCoordinator
	projector   *service.AccountListProjector
	initiator   *service.TransferInitiator
}

func NewBankHandler(
	logger *zap.Logger,
	users repository.UserRepository,
	orch *service.CredentialOrchestrator,
	coordinator *service.AccountLinkCoordinator,
	projector *service.AccountListProjector,
	initiator *service.TransferInitiator,
) *BankHandler {
	return &BankHandler{
		logger:      logger,
		users:       users,
		orch:        orch,
		coordinator: coordinator,
		projector:   projector,
		initiator:   initiator,
	}
}

func (h *BankHandler) currentUser(c *gin.Context) (domain.User, bool) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return domain.User{}, false
	}
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown session user"})
		return domain.User{}, false
	}
	return user, true
}

// CreateLinkToken maneja POST /link/token.
func (h *BankHandler) CreateLinkToken(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	token, err := h.coordinator.RequestLinkToken(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, service.ErrProviderRejected) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "link provider rejected request"})
			return
		}
		h.logger.Error("create link token failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "link provider unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"link_token": token.Token,
		"expires_at": token.ExpiresAt,
	})
}

// ExchangeToken maneja POST /link/exchange.
func (h *BankHandler) ExchangeToken(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req struct {
		PublicToken     string `json:"public_token" binding:"required"`
		InstitutionID   string `json:"institution_id" binding:"required"`
		InstitutionName string `json:"institution_name"`
		AccountID       string `json:"account_id" binding:"required"`
		AccountName     string `json:"account_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid exchange request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	handle, err := h.coordinator.ExchangePublicToken(c.Request.Context(), user, req.PublicToken, linking.InstitutionMetadata{
		InstitutionID:   req.InstitutionID,
		InstitutionName: req.InstitutionName,
		AccountID:       req.AccountID,
		AccountName:     req.AccountName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid link exchange input"})
		case errors.Is(err, service.ErrLinkRejected):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "public token rejected"})
		default:
			h.logger.Error("exchange public token failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "link provider unavailable"})
		}
		return
	}

	h.orch.MarkLinked(user.Email)
	h.projector.Invalidate(user.ID)

	c.JSON(http.StatusCreated, gin.H{"linked_account": handle})
}

// ListAccounts maneja GET /accounts.
func (h *BankHandler) ListAccounts(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var (
		accounts []domain.Account
		err      error
	)
	if c.Query("refresh") == "true" {
		accounts, err = h.projector.Refresh(c.Request.Context(), user)
	} else {
		accounts, err = h.projector.ListAccounts(c.Request.Context(), user)
	}
	if err != nil {
		if errors.Is(err, service.ErrProviderRejected) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "link provider rejected request"})
			return
		}
		h.logger.Error("list accounts failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "accounts unavailable"})
		return
	}

	// Sin cuentas vinculadas la respuesta es una lista vacia, no un error.
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// CreateTransfer maneja POST /transfers.
func (h *BankHandler) CreateTransfer(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req struct {
		SourceAccountID      string `json:"source_account_id" binding:"required"`
		DestinationAccountID string `json:"destination_account_id" binding:"required"`
		Amount               string `json:"amount" binding:"required"`
		Note                 string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid transfer request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	result, err := h.initiator.Initiate(c.Request.Context(), user, domain.TransferRequest{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               amount,
		Note:                 req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownAccount):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown account"})
		case errors.Is(err, service.ErrSelfTransfer):
			c.JSON(http.StatusBadRequest, gin.H{"error": "source and destination must differ"})
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		case errors.Is(err, service.ErrInsufficientFunds):
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient funds"})
		case errors.Is(err, service.ErrTransferRejected):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "transfer rejected by provider"})
		case errors.Is(err, service.ErrTransferIndeterminate):
			// Distinto de un rechazo: el dinero pudo haberse movido.
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error":  "transfer outcome unknown",
				"status": "indeterminate",
			})
		default:
			h.logger.Error("transfer failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments provider unavailable"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transfer": result})
}
